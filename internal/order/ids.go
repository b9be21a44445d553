package order

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns an order id of the form ORD-XXXXXXXX
func NewID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(id[:8])
}
