package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_ListCampaigns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/campaigns" {
			t.Errorf("Expected path /api/v1/campaigns, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		if got := r.URL.Query().Get("filter"); got != "active" {
			t.Errorf("Expected filter=active, got %s", got)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": 0, "title": "Clean water", "target": "10", "amountCollected": "2.5"},
			},
			"count": 1,
		})
	}))
	defer server.Close()

	client := New(server.URL, "test-key")
	campaigns, err := client.ListCampaigns(context.Background(), "active")
	if err != nil {
		t.Fatalf("ListCampaigns() error = %v", err)
	}

	if len(campaigns) != 1 {
		t.Errorf("ListCampaigns() returned %d campaigns, want 1", len(campaigns))
	}
	if campaigns[0].Title != "Clean water" {
		t.Errorf("ListCampaigns()[0].Title = %s, want Clean water", campaigns[0].Title)
	}
}

func TestClient_GetCampaign(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/campaigns/3" {
			t.Errorf("Expected path /api/v1/campaigns/3, got %s", r.URL.Path)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"id":            3,
			"title":         "Community garden",
			"percentFunded": "25",
			"daysRemaining": 12,
		})
	}))
	defer server.Close()

	client := New(server.URL, "")
	campaign, err := client.GetCampaign(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetCampaign() error = %v", err)
	}

	if campaign.ID != 3 {
		t.Errorf("GetCampaign().ID = %d, want 3", campaign.ID)
	}
	if campaign.DaysRemaining != 12 {
		t.Errorf("GetCampaign().DaysRemaining = %d, want 12", campaign.DaysRemaining)
	}
}

func TestClient_Donate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/campaigns/2/donations" {
			t.Errorf("Expected path /api/v1/campaigns/2/donations, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		if r.Header.Get("X-API-Key") != "my-api-key" {
			t.Errorf("Expected X-API-Key header, got %s", r.Header.Get("X-API-Key"))
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req["amount"] != "0.5" {
			t.Errorf("Expected amount 0.5, got %s", req["amount"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"txHash":      "0xabc",
			"blockNumber": 42,
			"gasUsed":     21000,
		})
	}))
	defer server.Close()

	client := New(server.URL, "my-api-key")
	receipt, err := client.Donate(context.Background(), 2, "0.5")
	if err != nil {
		t.Fatalf("Donate() error = %v", err)
	}

	if receipt.TxHash != "0xabc" {
		t.Errorf("Donate().TxHash = %s, want 0xabc", receipt.TxHash)
	}
	if receipt.BlockNumber != 42 {
		t.Errorf("Donate().BlockNumber = %d, want 42", receipt.BlockNumber)
	}
}

func TestClient_CreateCampaign(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/campaigns" {
			t.Errorf("Expected path /api/v1/campaigns, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST method, got %s", r.Method)
		}

		var req CreateCampaignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Target != "1.5" {
			t.Errorf("Expected target 1.5, got %s", req.Target)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"txHash": "0xfeed"})
	}))
	defer server.Close()

	client := New(server.URL, "my-api-key")
	receipt, err := client.CreateCampaign(context.Background(), CreateCampaignRequest{
		Title:       "Community garden",
		Description: "Raised beds for the block",
		Target:      "1.5",
		Deadline:    "2026-12-31",
	})
	if err != nil {
		t.Fatalf("CreateCampaign() error = %v", err)
	}
	if receipt.TxHash != "0xfeed" {
		t.Errorf("CreateCampaign().TxHash = %s, want 0xfeed", receipt.TxHash)
	}
}

func TestClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/wallet/connect" {
			t.Errorf("Expected path /api/v1/wallet/connect, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"account": "0x1234567890abcdef1234567890abcdef12345678",
		})
	}))
	defer server.Close()

	client := New(server.URL, "my-api-key")
	account, err := client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if account != "0x1234567890abcdef1234567890abcdef12345678" {
		t.Errorf("Connect() = %s, want 0x1234...5678", account)
	}
}

func TestClient_ListSubmissions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/submissions" {
			t.Errorf("Expected path /api/v1/submissions, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("status") != "failed" || q.Get("limit") != "10" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "sub-1", "kind": "donate", "status": "failed", "failureKind": "user_rejected"},
			},
			"count": 1,
		})
	}))
	defer server.Close()

	client := New(server.URL, "my-api-key")
	subs, err := client.ListSubmissions(context.Background(), SubmissionFilter{Status: "failed", Limit: 10})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("ListSubmissions() returned %d entries, want 1", len(subs))
	}
	if subs[0].FailureKind != "user_rejected" {
		t.Errorf("ListSubmissions()[0].FailureKind = %s, want user_rejected", subs[0].FailureKind)
	}
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"code":    "NOT_FOUND",
				"message": "Campaign not found",
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "")
	_, err := client.GetCampaign(context.Background(), 99)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected APIError, got %T", err)
	}
	if apiErr.Code != "NOT_FOUND" {
		t.Errorf("Expected code NOT_FOUND, got %s", apiErr.Code)
	}
}
