package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// ApiClient talks to the SeasonBot widget API
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	SessionID  string
	Token      string
}

// NewApiClient creates a new API client
func NewApiClient() *ApiClient {
	baseURL := os.Getenv("SEASONBOT_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &ApiClient{
		httpClient: &http.Client{
			// assistant replies may take up to the server's own timeout
			Timeout: 30 * time.Second,
		},
		BaseURL: baseURL,
	}
}

// CheckHealth checks if the API is up and running
func (c *ApiClient) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.BaseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("API health check failed with status code: %d", resp.StatusCode)
	}

	return true, nil
}

// ChatMessage is one line of the conversation
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// CartItem is a line in the cart
type CartItem struct {
	Code                string `json:"code"`
	Name                string `json:"name"`
	Price               int    `json:"price"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// Order is a draft or confirmed order
type Order struct {
	ID     string     `json:"id"`
	Items  []CartItem `json:"items"`
	Status string     `json:"status"`
	Total  int        `json:"total"`
}

// Totals are the server-computed cart amounts
type Totals struct {
	Subtotal    int `json:"subtotal"`
	DeliveryFee int `json:"deliveryFee"`
	Total       int `json:"total"`
	TotalItems  int `json:"totalItems"`
}

// Toast is a short notice raised by a change
type Toast struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Session is the widget state returned by the API
type Session struct {
	ID        string        `json:"id"`
	Messages  []ChatMessage `json:"messages"`
	Order     *Order        `json:"order"`
	Totals    Totals        `json:"totals"`
	Tab       string        `json:"tab"`
	Busy      bool          `json:"busy"`
	LastOrder *Order        `json:"lastOrder,omitempty"`
}

// MenuItem is a search hit
type MenuItem struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// SearchResult pairs a menu item with its section
type SearchResult struct {
	Item       MenuItem `json:"item"`
	CategoryID string   `json:"category_id"`
	Score      float64  `json:"score"`
}

type sessionResponse struct {
	Token   string  `json:"token"`
	Session Session `json:"session"`
}

type sendResponse struct {
	Result struct {
		Route  string  `json:"route"`
		Toasts []Toast `json:"toasts"`
	} `json:"result"`
	Session Session `json:"session"`
}

func (c *ApiClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("X-Session-Token", c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("request failed with status code: %d", resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *ApiClient) sessionPath(suffix string) string {
	return "/api/v1/sessions/" + c.SessionID + suffix
}

// StartSession opens a new widget session and keeps its token
func (c *ApiClient) StartSession() (*Session, error) {
	var res sessionResponse
	if err := c.do("POST", "/api/v1/sessions", nil, &res); err != nil {
		return nil, err
	}
	c.SessionID, c.Token = res.Session.ID, res.Token
	return &res.Session, nil
}

// GetSession retrieves the current session state
func (c *ApiClient) GetSession() (*Session, error) {
	var res sessionResponse
	if err := c.do("GET", c.sessionPath(""), nil, &res); err != nil {
		return nil, err
	}
	return &res.Session, nil
}

// SendMessage posts a chat message and returns the updated session
func (c *ApiClient) SendMessage(text string) (*Session, []Toast, error) {
	var res sendResponse
	if err := c.do("POST", c.sessionPath("/messages"), map[string]string{"text": text}, &res); err != nil {
		return nil, nil, err
	}
	return &res.Session, res.Result.Toasts, nil
}

// ResetSession clears the conversation and draft
func (c *ApiClient) ResetSession() (*Session, error) {
	var res sessionResponse
	if err := c.do("POST", c.sessionPath("/reset"), nil, &res); err != nil {
		return nil, err
	}
	return &res.Session, nil
}

// SearchMenu returns the best matching menu items
func (c *ApiClient) SearchMenu(query string) ([]SearchResult, error) {
	var res struct {
		Results []SearchResult `json:"results"`
	}
	path := "/api/v1/menu/search?limit=25&q=" + url.QueryEscape(query)
	if err := c.do("GET", path, nil, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}
