// Package client provides a Go client for the Crowdfund API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client is a Crowdfund API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new Crowdfund client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Campaign is one campaign as reported by the API. Amounts are decimal
// strings in native units.
type Campaign struct {
	ID              int64  `json:"id"`
	Owner           string `json:"owner"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Target          string `json:"target"`
	AmountCollected string `json:"amountCollected"`
	Deadline        int64  `json:"deadline"`
	DaysRemaining   int64  `json:"daysRemaining"`
	PercentFunded   string `json:"percentFunded"`
	TargetReached   bool   `json:"targetReached"`
	Ended           bool   `json:"ended"`
}

// Donation is one donator/amount pair
type Donation struct {
	Donator  string `json:"donator"`
	Donation string `json:"donation"`
}

// Receipt is the outcome of a confirmed write
type Receipt struct {
	TxHash      string `json:"txHash"`
	BlockNumber int64  `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
}

// CreateCampaignRequest is the request for creating a campaign
type CreateCampaignRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Target      string `json:"target"`
	Deadline    string `json:"deadline"` // YYYY-MM-DD
}

// Status is the wallet and reconciliation status
type Status struct {
	Account         string    `json:"account,omitempty"`
	WalletConnected bool      `json:"walletConnected"`
	State           string    `json:"state"`
	LastError       string    `json:"lastError,omitempty"`
	Campaigns       int       `json:"campaigns"`
	ReconciledAt    time.Time `json:"reconciledAt"`
	DonationFloor   string    `json:"donationFloor"`
}

// Submission is one transaction audit log entry
type Submission struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Account     string    `json:"account"`
	CampaignID  int64     `json:"campaignId"`
	Amount      string    `json:"amount,omitempty"`
	TxHash      string    `json:"txHash,omitempty"`
	Status      string    `json:"status"`
	FailureKind string    `json:"failureKind,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RefreshResult reports a forced reconciliation
type RefreshResult struct {
	Campaigns    int       `json:"campaigns"`
	ReconciledAt time.Time `json:"reconciledAt"`
}

// SubmissionFilter narrows ListSubmissions. Zero values match everything.
type SubmissionFilter struct {
	Account string
	Kind    string
	Status  string
	Limit   int
}

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ListCampaigns lists campaigns. Filter is one of "all", "active",
// "finished", "mine"; empty means all.
func (c *Client) ListCampaigns(ctx context.Context, filter string) ([]Campaign, error) {
	path := "/api/v1/campaigns"
	if filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	var resp struct {
		Data []Campaign `json:"data"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetCampaign gets a campaign by its ledger index
func (c *Client) GetCampaign(ctx context.Context, id int64) (*Campaign, error) {
	var resp Campaign
	if err := c.get(ctx, fmt.Sprintf("/api/v1/campaigns/%d", id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Donations lists the donations for a campaign
func (c *Client) Donations(ctx context.Context, id int64) ([]Donation, error) {
	var resp struct {
		Data []Donation `json:"data"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/v1/campaigns/%d/donations", id), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateCampaign creates a campaign and waits for the transaction to
// confirm
func (c *Client) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*Receipt, error) {
	var resp Receipt
	if err := c.post(ctx, "/api/v1/campaigns", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Donate donates to a campaign and waits for the transaction to confirm
func (c *Client) Donate(ctx context.Context, id int64, amount string) (*Receipt, error) {
	var resp Receipt
	body := map[string]string{"amount": amount}
	if err := c.post(ctx, fmt.Sprintf("/api/v1/campaigns/%d/donations", id), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh forces a reconciliation against the chain
func (c *Client) Refresh(ctx context.Context) (*RefreshResult, error) {
	var resp RefreshResult
	if err := c.post(ctx, "/api/v1/campaigns/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Connect unlocks the server-side wallet and returns the account
func (c *Client) Connect(ctx context.Context) (string, error) {
	var resp struct {
		Account string `json:"account"`
	}
	if err := c.post(ctx, "/api/v1/wallet/connect", nil, &resp); err != nil {
		return "", err
	}
	return resp.Account, nil
}

// Disconnect locks the server-side wallet
func (c *Client) Disconnect(ctx context.Context) error {
	return c.post(ctx, "/api/v1/wallet/disconnect", nil, nil)
}

// WalletStatus reports the wallet and reconciliation status
func (c *Client) WalletStatus(ctx context.Context) (*Status, error) {
	var resp Status
	if err := c.get(ctx, "/api/v1/wallet/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Balance returns the connected account's balance in native units
func (c *Client) Balance(ctx context.Context) (string, error) {
	var resp struct {
		Balance string `json:"balance"`
	}
	if err := c.get(ctx, "/api/v1/wallet/balance", &resp); err != nil {
		return "", err
	}
	return resp.Balance, nil
}

// ListSubmissions lists transaction audit log entries
func (c *Client) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error) {
	q := url.Values{}
	if filter.Account != "" {
		q.Set("account", filter.Account)
	}
	if filter.Kind != "" {
		q.Set("kind", filter.Kind)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", filter.Limit))
	}

	path := "/api/v1/submissions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Data []Submission `json:"data"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return &errResp.Error
}
