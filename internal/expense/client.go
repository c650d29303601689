package expense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pigfarm/receipt-capture/internal/apperror"
)

const (
	submitFallback = "An error occurred while submitting the expense"
	listFallback   = "An error occurred while loading expenses"
)

// Store persists expenses on behalf of a bearer credential
type Store interface {
	// Create stores a record and returns what the service saved
	Create(ctx context.Context, token string, record Record) (*Expense, error)
	// List returns the caller's stored expenses
	List(ctx context.Context, token string) ([]*Expense, error)
}

// Client talks to the persistence service over HTTP
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the service at baseURL
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a Client with a custom HTTP client for testing
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// Create posts a record to /expenses
func (c *Client) Create(ctx context.Context, token string, record Record) (*Expense, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshaling expense: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/expenses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setBearer(req, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperror.Remote(0, submitFallback, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.FromResponse(resp, submitFallback)
	}

	var saved Expense
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return nil, apperror.Remote(resp.StatusCode, submitFallback, fmt.Errorf("decoding response: %w", err))
	}
	return &saved, nil
}

// List fetches /expenses
func (c *Client) List(ctx context.Context, token string) ([]*Expense, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/expenses", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setBearer(req, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperror.Remote(0, listFallback, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.FromResponse(resp, listFallback)
	}

	expenses := make([]*Expense, 0)
	if err := json.NewDecoder(resp.Body).Decode(&expenses); err != nil {
		return nil, apperror.Remote(resp.StatusCode, listFallback, fmt.Errorf("decoding response: %w", err))
	}
	return expenses, nil
}

func setBearer(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
