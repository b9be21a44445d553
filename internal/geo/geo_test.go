package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kitchenLat = 23.751504401249157
	kitchenLng = 90.36807718044602
)

func TestDistance(t *testing.T) {
	assert.InDelta(t, 0, Distance(kitchenLat, kitchenLng, kitchenLat, kitchenLng), 1e-9)

	// Dhanmondi to Uttara is well outside a 5 km radius
	d := Distance(kitchenLat, kitchenLng, 23.8759, 90.3795)
	assert.InDelta(t, 13.9, d, 0.3)

	// one degree of latitude
	assert.InDelta(t, 111.19, Distance(0, 0, 1, 0), 0.01)

	assert.InDelta(t, d, Distance(23.8759, 90.3795, kitchenLat, kitchenLng), 1e-9)
}

func TestNominatim_ReverseGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "23.75", r.URL.Query().Get("lat"))
		assert.Equal(t, "90.368", r.URL.Query().Get("lon"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name":"Satmasjid Road, Dhanmondi, Dhaka"}`))
	}))
	defer server.Close()

	n := NewNominatim(server.URL, "seasonbot-test", time.Second)
	addr, err := n.ReverseGeocode(context.Background(), 23.75, 90.368)
	require.NoError(t, err)
	assert.Equal(t, "Satmasjid Road, Dhanmondi, Dhaka", addr)
}

func TestNominatim_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "0" {
			w.Write([]byte(`{"error":"Unable to geocode"}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	n := NewNominatim(server.URL, "", time.Second)

	_, err := n.ReverseGeocode(context.Background(), 0, 0)
	assert.Error(t, err)

	_, err = n.ReverseGeocode(context.Background(), 23.7, 90.3)
	assert.Error(t, err)
}
