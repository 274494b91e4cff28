package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"log/slog"

	"github.com/etherian3/crowd-fundapp/internal/campaigns/domain"
)

func TestSQLiteStore(t *testing.T) {
	// Create temp directory for test database
	tmpDir, err := os.MkdirTemp("", "crowdfund-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewSQLiteStore(dbPath, logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	t.Run("RecordAndGetSubmission", func(t *testing.T) {
		rec := domain.SubmissionRecord{
			ID:         "sub-1",
			Kind:       "donate",
			Account:    "0x00000000000000000000000000000000000000aa",
			CampaignID: 3,
			Amount:     "0.5",
			Status:     "pending",
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}

		if err := store.RecordSubmission(ctx, rec); err != nil {
			t.Fatalf("RecordSubmission() error = %v", err)
		}

		got, err := store.GetSubmission(ctx, "sub-1")
		if err != nil {
			t.Fatalf("GetSubmission() error = %v", err)
		}
		if got.Kind != "donate" || got.CampaignID != 3 || got.Amount != "0.5" {
			t.Errorf("GetSubmission() = %+v", got)
		}
		if got.Status != "pending" {
			t.Errorf("Status = %v, want pending", got.Status)
		}
	})

	t.Run("UpdateSubmission", func(t *testing.T) {
		if err := store.UpdateSubmission(ctx, "sub-1", "failed", "0xdead", "user_rejected", "signature request denied"); err != nil {
			t.Fatalf("UpdateSubmission() error = %v", err)
		}

		got, err := store.GetSubmission(ctx, "sub-1")
		if err != nil {
			t.Fatalf("GetSubmission() error = %v", err)
		}
		if got.Status != "failed" || got.TxHash != "0xdead" || got.FailureKind != "user_rejected" {
			t.Errorf("after update: %+v", got)
		}
	})

	t.Run("UpdateSubmissionNotFound", func(t *testing.T) {
		if err := store.UpdateSubmission(ctx, "missing", "confirmed", "", "", ""); err != ErrNotFound {
			t.Errorf("UpdateSubmission() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("GetSubmissionNotFound", func(t *testing.T) {
		if _, err := store.GetSubmission(ctx, "missing"); err != ErrNotFound {
			t.Errorf("GetSubmission() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListSubmissions", func(t *testing.T) {
		rec := domain.SubmissionRecord{
			ID:         "sub-2",
			Kind:       "create",
			Account:    "0x00000000000000000000000000000000000000bb",
			CampaignID: -1,
			Amount:     "10",
			Status:     "confirmed",
			CreatedAt:  time.Now().Add(time.Second),
			UpdatedAt:  time.Now().Add(time.Second),
		}
		if err := store.RecordSubmission(ctx, rec); err != nil {
			t.Fatalf("RecordSubmission() error = %v", err)
		}

		all, err := store.ListSubmissions(ctx, SubmissionFilter{}, 10)
		if err != nil {
			t.Fatalf("ListSubmissions() error = %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("len(all) = %d, want 2", len(all))
		}
		if all[0].ID != "sub-2" {
			t.Errorf("newest first: got %v", all[0].ID)
		}

		creates, err := store.ListSubmissions(ctx, SubmissionFilter{Kind: "create"}, 10)
		if err != nil {
			t.Fatalf("ListSubmissions(kind) error = %v", err)
		}
		if len(creates) != 1 || creates[0].ID != "sub-2" {
			t.Errorf("kind filter: %+v", creates)
		}

		failed, err := store.ListSubmissions(ctx, SubmissionFilter{Status: "failed"}, 10)
		if err != nil {
			t.Fatalf("ListSubmissions(status) error = %v", err)
		}
		if len(failed) != 1 || failed[0].ID != "sub-1" {
			t.Errorf("status filter: %+v", failed)
		}
	})

	t.Run("SnapshotRoundTrip", func(t *testing.T) {
		if _, _, err := store.LoadSnapshot(ctx); err != ErrNotFound {
			t.Errorf("LoadSnapshot() on empty = %v, want ErrNotFound", err)
		}

		at := time.Now().UTC().Truncate(time.Second)
		if err := store.SaveSnapshot(ctx, []byte(`{"all":[]}`), at); err != nil {
			t.Fatalf("SaveSnapshot() error = %v", err)
		}

		payload, got, err := store.LoadSnapshot(ctx)
		if err != nil {
			t.Fatalf("LoadSnapshot() error = %v", err)
		}
		if string(payload) != `{"all":[]}` {
			t.Errorf("payload = %s", payload)
		}
		if !got.Equal(at) {
			t.Errorf("reconciledAt = %v, want %v", got, at)
		}

		// Second save replaces the row
		if err := store.SaveSnapshot(ctx, []byte(`{"all":[1]}`), at.Add(time.Minute)); err != nil {
			t.Fatalf("SaveSnapshot() replace error = %v", err)
		}
		payload, _, err = store.LoadSnapshot(ctx)
		if err != nil {
			t.Fatalf("LoadSnapshot() error = %v", err)
		}
		if string(payload) != `{"all":[1]}` {
			t.Errorf("payload after replace = %s", payload)
		}
	})

	t.Run("WalletFlag", func(t *testing.T) {
		account, connected, err := store.WalletConnected(ctx)
		if err != nil || connected || account != "" {
			t.Errorf("initial flag = %v %v %v", account, connected, err)
		}

		if err := store.SetWalletConnected(ctx, "0xaa", true); err != nil {
			t.Fatalf("SetWalletConnected() error = %v", err)
		}
		account, connected, err = store.WalletConnected(ctx)
		if err != nil || !connected || account != "0xaa" {
			t.Errorf("after connect = %v %v %v", account, connected, err)
		}

		if err := store.SetWalletConnected(ctx, "0xaa", false); err != nil {
			t.Fatalf("SetWalletConnected() error = %v", err)
		}
		_, connected, _ = store.WalletConnected(ctx)
		if connected {
			t.Error("flag still set after disconnect")
		}
	})

	t.Run("APIKeys", func(t *testing.T) {
		key, err := store.CreateAPIKey(ctx, "ci")
		if err != nil {
			t.Fatalf("CreateAPIKey() error = %v", err)
		}
		if key == "" {
			t.Fatal("empty key")
		}

		ak, err := store.ValidateAPIKey(ctx, key)
		if err != nil {
			t.Fatalf("ValidateAPIKey() error = %v", err)
		}
		if ak.Name != "ci" {
			t.Errorf("Name = %v", ak.Name)
		}

		if _, err := store.ValidateAPIKey(ctx, "wrong"); err != ErrNotFound {
			t.Errorf("ValidateAPIKey(wrong) = %v, want ErrNotFound", err)
		}

		keys, err := store.ListAPIKeys(ctx)
		if err != nil || len(keys) != 1 {
			t.Fatalf("ListAPIKeys() = %v, %v", keys, err)
		}

		if err := store.RevokeAPIKey(ctx, ak.ID); err != nil {
			t.Fatalf("RevokeAPIKey() error = %v", err)
		}
		if _, err := store.ValidateAPIKey(ctx, key); err != ErrNotFound {
			t.Errorf("revoked key still validates: %v", err)
		}
	})
}
