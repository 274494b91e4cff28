//go:build e2e

package e2e

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etherian3/crowd-fundapp/pkg/client"
)

// TestSubmissions_AuditLog tests the transaction audit log. The campaign
// write tests run first and leave confirmed and failed records behind.
func TestSubmissions_AuditLog(t *testing.T) {
	ctx := context.Background()
	apiKey := createTestAPIKey(t, testCtx.Store, "test-submissions")
	c := newClient(testCtx.TestServer, apiKey)

	// One guaranteed confirmed donation for this test.
	_, err := c.Donate(ctx, 0, "0.1")
	require.NoError(t, err)

	t.Run("list all submissions", func(t *testing.T) {
		submissions, err := c.ListSubmissions(ctx, client.SubmissionFilter{})
		require.NoError(t, err)
		require.NotEmpty(t, submissions)

		for _, sub := range submissions {
			assert.NotEmpty(t, sub.ID)
			assert.Contains(t, []string{"create", "donate"}, sub.Kind)
			assert.Contains(t, []string{"pending", "submitted", "confirmed", "failed"}, sub.Status)
			assert.False(t, sub.CreatedAt.IsZero())
		}
	})

	t.Run("filter by kind", func(t *testing.T) {
		submissions, err := c.ListSubmissions(ctx, client.SubmissionFilter{Kind: "donate"})
		require.NoError(t, err)
		require.NotEmpty(t, submissions)

		for _, sub := range submissions {
			assert.Equal(t, "donate", sub.Kind)
			assert.GreaterOrEqual(t, sub.CampaignID, int64(0))
		}
	})

	t.Run("filter by status confirmed", func(t *testing.T) {
		submissions, err := c.ListSubmissions(ctx, client.SubmissionFilter{Status: "confirmed"})
		require.NoError(t, err)
		require.NotEmpty(t, submissions)

		for _, sub := range submissions {
			assert.Equal(t, "confirmed", sub.Status)
			assert.NotEmpty(t, sub.TxHash)
			assert.Empty(t, sub.FailureKind)
		}
	})

	t.Run("failed submissions carry the failure taxonomy", func(t *testing.T) {
		submissions, err := c.ListSubmissions(ctx, client.SubmissionFilter{Status: "failed"})
		require.NoError(t, err)
		require.NotEmpty(t, submissions, "The reverted donation test should have left a failed record")

		found := false
		for _, sub := range submissions {
			assert.Equal(t, "failed", sub.Status)
			if sub.FailureKind == "contract_reverted" {
				found = true
				assert.NotEmpty(t, sub.Reason)
			}
		}
		assert.True(t, found, "Expected a contract_reverted record")
	})

	t.Run("filter by account", func(t *testing.T) {
		submissions, err := c.ListSubmissions(ctx, client.SubmissionFilter{Account: strings.ToLower(testAccount)})
		require.NoError(t, err)
		require.NotEmpty(t, submissions)

		for _, sub := range submissions {
			assert.Equal(t, strings.ToLower(testAccount), sub.Account)
		}
	})

	t.Run("limit caps the result", func(t *testing.T) {
		submissions, err := c.ListSubmissions(ctx, client.SubmissionFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, submissions, 1)
	})

	t.Run("rejected input never reaches the log", func(t *testing.T) {
		before, err := c.ListSubmissions(ctx, client.SubmissionFilter{})
		require.NoError(t, err)

		_, err = c.Donate(ctx, 0, "0.00001")
		assertHTTPError(t, err, "BELOW_MINIMUM")

		after, err := c.ListSubmissions(ctx, client.SubmissionFilter{})
		require.NoError(t, err)
		assert.Len(t, after, len(before), "Input-tier rejections are not audited")
	})
}
