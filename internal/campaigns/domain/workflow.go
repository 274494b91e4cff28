package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/etherian3/crowd-fundapp/internal/chain"
	"github.com/etherian3/crowd-fundapp/internal/observability/metrics"
	"github.com/etherian3/crowd-fundapp/internal/validation"
)

// State is the phase of the most recent submission.
type State string

const (
	StateIdle                 State = "idle"
	StateValidating           State = "validating"
	StateSubmitting           State = "submitting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
)

// TxSubmitter is the write side of the gateway the workflow depends on.
type TxSubmitter interface {
	Account() string
	SubmitCreateCampaign(ctx context.Context, owner, title, description string, targetWei *big.Int, deadlineUnix int64) (*types.Transaction, error)
	SubmitDonate(ctx context.Context, campaignID int64, amountWei *big.Int) (*types.Transaction, error)
	AwaitConfirmation(ctx context.Context, tx *types.Transaction, confirmations uint64) (*types.Receipt, error)
	Balance(ctx context.Context, account string) (*big.Int, error)
}

// SubmissionRecord is one row of the submission audit log.
type SubmissionRecord struct {
	ID          string
	Kind        string // "create" or "donate"
	Account     string
	CampaignID  int64 // -1 for create
	Amount      string
	TxHash      string
	Status      string // "pending", "submitted", "confirmed", "failed"
	FailureKind string
	Reason      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubmissionRecorder persists the audit trail of submissions. Recorder
// failures never fail the workflow, only the transaction outcome does.
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, rec SubmissionRecord) error
	UpdateSubmission(ctx context.Context, id, status, txHash, failureKind, reason string) error
}

// Workflow drives campaign creation and donation submissions end to end:
// validate, submit, await confirmation, reconcile. Submissions are
// serialized; the wallet signs one transaction at a time.
type Workflow struct {
	submitter     TxSubmitter
	store         *Store
	recorder      SubmissionRecorder
	logger        *slog.Logger
	confirmations uint64
	floor         decimal.Decimal
	now           func() time.Time

	submitMu sync.Mutex

	mu        sync.RWMutex
	state     State
	lastError error
}

// NewWorkflow wires a workflow over the gateway and store. floor is the
// minimum donation in native units; an unparsable floor falls back to
// 0.0001.
func NewWorkflow(submitter TxSubmitter, store *Store, recorder SubmissionRecorder, confirmations uint64, floor string, logger *slog.Logger) *Workflow {
	f, err := decimal.NewFromString(floor)
	if err != nil || !f.IsPositive() {
		f = decimal.RequireFromString("0.0001")
	}
	return &Workflow{
		submitter:     submitter,
		store:         store,
		recorder:      recorder,
		logger:        logger,
		confirmations: confirmations,
		floor:         f,
		now:           time.Now,
		state:         StateIdle,
	}
}

// Status returns the phase of the most recent submission and its failure,
// if any.
func (w *Workflow) Status() (State, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state, w.lastError
}

// Floor returns the minimum accepted donation in native units.
func (w *Workflow) Floor() decimal.Decimal {
	return w.floor
}

// CreateCampaign validates the input, submits createCampaign, waits for
// confirmation and reconciles the campaign set. The returned error is
// either an input-tier error or a *chain.Classified.
func (w *Workflow) CreateCampaign(ctx context.Context, in CreateInput) (Receipt, error) {
	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	w.setState(StateValidating, nil)

	account := w.submitter.Account()
	if account == "" {
		return Receipt{}, w.fail("create", chain.ErrNotConnected)
	}
	if err := validation.ValidateTitle(in.Title); err != nil {
		return Receipt{}, w.reject("create", err)
	}
	if err := validation.ValidateDescription(in.Description); err != nil {
		return Receipt{}, w.reject("create", err)
	}
	target, err := validation.ParsePositiveAmount(in.Target)
	if err != nil {
		return Receipt{}, w.reject("create", err)
	}
	deadline, err := validation.ParseDeadline(in.Deadline, w.now())
	if err != nil {
		return Receipt{}, w.reject("create", err)
	}

	rec := SubmissionRecord{
		ID:         uuid.NewString(),
		Kind:       "create",
		Account:    account,
		CampaignID: -1,
		Amount:     target.String(),
		Status:     "pending",
		CreatedAt:  w.now(),
		UpdatedAt:  w.now(),
	}
	w.record(ctx, rec)

	w.setState(StateSubmitting, nil)
	tx, err := w.submitter.SubmitCreateCampaign(ctx, account, in.Title, in.Description, DecimalToWei(target), deadline)
	if err != nil {
		return Receipt{}, w.failRecorded(ctx, "create", rec.ID, "", err)
	}
	w.update(ctx, rec.ID, "submitted", tx.Hash().Hex(), "", "")

	w.setState(StateAwaitingConfirmation, nil)
	receipt, err := w.submitter.AwaitConfirmation(ctx, tx, w.confirmations)
	if err != nil {
		return Receipt{}, w.failRecorded(ctx, "create", rec.ID, tx.Hash().Hex(), err)
	}

	w.store.Reconcile(ctx)
	w.update(ctx, rec.ID, "confirmed", tx.Hash().Hex(), "", "")
	w.setState(StateSucceeded, nil)
	metrics.CampaignCreate("success")
	w.logger.Info("campaign created", "account", account, "tx", tx.Hash().Hex())

	return receiptOf(receipt), nil
}

// Donate validates the amount against the floor and the campaign state,
// submits the payable donateToCampaign call and waits for confirmation.
func (w *Workflow) Donate(ctx context.Context, campaignID int64, amount string) (Receipt, error) {
	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	w.setState(StateValidating, nil)

	account := w.submitter.Account()
	if account == "" {
		return Receipt{}, w.fail("donate", chain.ErrNotConnected)
	}
	amt, err := validation.ParsePositiveAmount(amount)
	if err != nil {
		return Receipt{}, w.reject("donate", err)
	}
	if amt.LessThan(w.floor) {
		return Receipt{}, w.reject("donate", fmt.Errorf("%w: minimum is %s", ErrBelowMinimum, w.floor))
	}

	campaign, ok := w.store.Lookup(campaignID)
	if !ok {
		return Receipt{}, w.reject("donate", fmt.Errorf("%w: id %d", ErrCampaignNotFound, campaignID))
	}
	if campaign.Ended(w.now()) {
		return Receipt{}, w.reject("donate", fmt.Errorf("%w: id %d", ErrCampaignEnded, campaignID))
	}

	wei := DecimalToWei(amt)

	// Balance check is best-effort: a failed lookup never blocks the
	// submission, the node is the authority.
	if balance, err := w.submitter.Balance(ctx, account); err == nil && balance != nil && balance.Cmp(wei) < 0 {
		return Receipt{}, w.fail("donate", fmt.Errorf("insufficient funds: balance %s wei, need %s wei", balance, wei))
	}

	rec := SubmissionRecord{
		ID:         uuid.NewString(),
		Kind:       "donate",
		Account:    account,
		CampaignID: campaignID,
		Amount:     amt.String(),
		Status:     "pending",
		CreatedAt:  w.now(),
		UpdatedAt:  w.now(),
	}
	w.record(ctx, rec)

	w.setState(StateSubmitting, nil)
	tx, err := w.submitter.SubmitDonate(ctx, campaignID, wei)
	if err != nil {
		return Receipt{}, w.failRecorded(ctx, "donate", rec.ID, "", err)
	}
	w.update(ctx, rec.ID, "submitted", tx.Hash().Hex(), "", "")

	w.setState(StateAwaitingConfirmation, nil)
	receipt, err := w.submitter.AwaitConfirmation(ctx, tx, w.confirmations)
	if err != nil {
		return Receipt{}, w.failRecorded(ctx, "donate", rec.ID, tx.Hash().Hex(), err)
	}

	w.store.Reconcile(ctx)
	w.update(ctx, rec.ID, "confirmed", tx.Hash().Hex(), "", "")
	w.setState(StateSucceeded, nil)
	metrics.Donation("success")
	w.logger.Info("donation confirmed", "campaign", campaignID, "account", account, "tx", tx.Hash().Hex())

	return receiptOf(receipt), nil
}

func (w *Workflow) setState(s State, err error) {
	w.mu.Lock()
	w.state = s
	w.lastError = err
	w.mu.Unlock()
}

// reject handles input-tier failures: nothing was signed or sent, so the
// error passes through unclassified and unrecorded.
func (w *Workflow) reject(kind string, err error) error {
	if !errors.Is(err, ErrCampaignNotFound) && !errors.Is(err, ErrCampaignEnded) && !errors.Is(err, ErrBelowMinimum) {
		err = fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	w.setState(StateFailed, err)
	w.count(kind, "rejected")
	return err
}

// fail classifies a transaction-tier failure that happened before an audit
// record existed.
func (w *Workflow) fail(kind string, err error) error {
	classified := chain.Classify(err)
	w.setState(StateFailed, classified)
	w.count(kind, "error")
	metrics.TxFailure(string(classified.Kind))
	w.logger.Warn("submission failed", "kind", kind, "failure", classified.Kind, "reason", classified.Reason)
	return classified
}

// failRecorded classifies a failure and marks the audit record failed.
func (w *Workflow) failRecorded(ctx context.Context, kind, recID, txHash string, err error) error {
	classified := chain.Classify(err)
	w.update(ctx, recID, "failed", txHash, string(classified.Kind), classified.Reason)
	w.setState(StateFailed, classified)
	w.count(kind, "error")
	metrics.TxFailure(string(classified.Kind))
	w.logger.Warn("submission failed", "kind", kind, "failure", classified.Kind, "reason", classified.Reason)
	return classified
}

func (w *Workflow) count(kind, status string) {
	if kind == "donate" {
		metrics.Donation(status)
		return
	}
	metrics.CampaignCreate(status)
}

func (w *Workflow) record(ctx context.Context, rec SubmissionRecord) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.RecordSubmission(ctx, rec); err != nil {
		w.logger.Error("failed to record submission", "id", rec.ID, "error", err)
	}
}

func (w *Workflow) update(ctx context.Context, id, status, txHash, failureKind, reason string) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.UpdateSubmission(ctx, id, status, txHash, failureKind, reason); err != nil {
		w.logger.Error("failed to update submission", "id", id, "error", err)
	}
}

func receiptOf(r *types.Receipt) Receipt {
	rec := Receipt{
		TxHash:  r.TxHash.Hex(),
		GasUsed: r.GasUsed,
	}
	if r.BlockNumber != nil {
		rec.BlockNumber = r.BlockNumber.Int64()
	}
	return rec
}
