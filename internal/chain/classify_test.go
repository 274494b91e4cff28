package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// codedError mimics a JSON-RPC error with a numeric code.
type codedError struct {
	code int
	msg  string
}

func (e *codedError) Error() string  { return e.msg }
func (e *codedError) ErrorCode() int { return e.code }

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassify_UserRejectedByCode(t *testing.T) {
	c := Classify(&codedError{code: 4001, msg: "MetaMask Tx Signature: User denied transaction signature."})
	require.NotNil(t, c)
	assert.Equal(t, KindUserRejected, c.Kind)
	assert.False(t, c.Retryable())
}

func TestClassify_UserRejectedByPhrase(t *testing.T) {
	c := Classify(errors.New("ACTION_REJECTED: user rejected transaction"))
	assert.Equal(t, KindUserRejected, c.Kind)
}

func TestClassify_InsufficientGas(t *testing.T) {
	tests := []string{
		"insufficient funds for gas * price + value",
		"gas required exceeds allowance (21000)",
		"intrinsic gas too low",
		"replacement transaction underpriced",
	}
	for _, msg := range tests {
		c := Classify(errors.New(msg))
		assert.Equal(t, KindInsufficientGas, c.Kind, msg)
		assert.True(t, c.Retryable(), msg)
	}
}

func TestClassify_RevertedWithReason(t *testing.T) {
	c := Classify(errors.New("execution reverted: Target already reached"))
	require.Equal(t, KindContractReverted, c.Kind)
	assert.Equal(t, "Target already reached", c.Reason)
	assert.Contains(t, c.UserMessage, "Target already reached")
	assert.False(t, c.Retryable())
}

func TestClassify_RevertedWithoutReason(t *testing.T) {
	c := Classify(errors.New("execution reverted"))
	require.Equal(t, KindContractReverted, c.Kind)
	assert.Empty(t, c.Reason)
}

// A revert message that also mentions gas must still classify by the
// earlier gas rule, since gas phrases are checked first by design order.
func TestClassify_PriorityOrder(t *testing.T) {
	c := Classify(errors.New("insufficient funds: execution reverted"))
	assert.Equal(t, KindInsufficientGas, c.Kind)

	c = Classify(errors.New("user denied: execution reverted: whatever"))
	assert.Equal(t, KindUserRejected, c.Kind)
}

func TestClassify_Network(t *testing.T) {
	tests := []error{
		errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"),
		errors.New("lookup rpc.example.org: no such host"),
		errors.New("read tcp: i/o timeout"),
		context.DeadlineExceeded,
	}
	for _, err := range tests {
		c := Classify(err)
		assert.Equal(t, KindNetworkError, c.Kind, err.Error())
		assert.True(t, c.Retryable())
	}
}

func TestClassify_Sentinels(t *testing.T) {
	assert.Equal(t, KindWalletNotConnected, Classify(ErrNotConnected).Kind)
	assert.Equal(t, KindWalletNotConnected, Classify(ErrNoWallet).Kind)
	assert.Equal(t, KindUserRejected, Classify(ErrUserRejected).Kind)
	assert.Equal(t, KindNetworkError, Classify(ErrChainMismatch).Kind)

	c := Classify(fmt.Errorf("waiting for receipt: %w", ErrConfirmationTimeout))
	assert.Equal(t, KindConfirmationTimeout, c.Kind)
	assert.False(t, c.Retryable())
}

func TestClassify_Unknown(t *testing.T) {
	c := Classify(errors.New("weird internal state"))
	assert.Equal(t, KindUnknown, c.Kind)
	assert.NotEmpty(t, c.UserMessage)
}

func TestClassify_PassthroughClassified(t *testing.T) {
	orig := &Classified{Kind: KindContractReverted, Reason: "deadline passed"}
	wrapped := fmt.Errorf("donate: %w", orig)
	assert.Same(t, orig, Classify(wrapped))
}
