package transfercore

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/ratelimit"
)

// State of the orchestrator.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateSimulated
	StateConfirming
	StateSubmitting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoaded:
		return "Loaded"
	case StateSimulated:
		return "Simulated"
	case StateConfirming:
		return "Confirming"
	case StateSubmitting:
		return "Submitting"
	case StateDone:
		return "Done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Summary is what the operator is asked to confirm.
type Summary struct {
	RunID        string
	Signer       string
	Recipients   int
	Total        *big.Int // minimal units over rows that scale
	Unscalable   int
	EstimatedFee decimal.Decimal
	Decimals     int32
}

// ConfirmFunc is the blocking yes/no gate in front of submission.
type ConfirmFunc func(ctx context.Context, s Summary) bool

// AlwaysConfirm approves every batch.
func AlwaysConfirm(context.Context, Summary) bool { return true }

// Config wires the orchestrator's collaborators and hooks.
type Config struct {
	Decimals  int32
	Estimator FeeEstimator
	Confirm   ConfirmFunc
	// Pace is the minimum gap between two submissions; zero disables pacing.
	Pace      time.Duration
	Logf      func(string, ...any)
	OnOutcome func(TransferOutcome)
}

func (c *Config) logf(format string, a ...any) {
	if c.Logf != nil {
		c.Logf(format, a...)
	}
}

// Orchestrator drives load, simulate, confirm and sequential submission.
type Orchestrator struct {
	session *Session
	cfg     Config

	mu       sync.Mutex
	state    State
	set      *RecipientSet
	quotes   []SimulatedQuote
	outcomes []TransferOutcome
	runID    string
}

// NewOrchestrator binds an orchestrator to a session. A nil estimator falls
// back to the reference fixed fee.
func NewOrchestrator(session *Session, cfg Config) *Orchestrator {
	if cfg.Estimator == nil {
		cfg.Estimator = FixedFee{Fee: ReferenceFee}
	}
	return &Orchestrator{session: session, cfg: cfg}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Recipients() *RecipientSet {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.set
}

func (o *Orchestrator) Quotes() []SimulatedQuote {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]SimulatedQuote(nil), o.quotes...)
}

func (o *Orchestrator) Outcomes() []TransferOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]TransferOutcome(nil), o.outcomes...)
}

// RunID identifies the last confirmed submission run.
func (o *Orchestrator) RunID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runID
}

func (o *Orchestrator) Report() Report { return Summarize(o.Outcomes()) }

// SetEstimator swaps the fee estimator. Existing quotes are dropped.
func (o *Orchestrator) SetEstimator(e FeeEstimator) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy() {
		return fmt.Errorf("set estimator in state %s: %w", o.state, ErrInvalidState)
	}
	o.cfg.Estimator = e
	if o.state == StateSimulated {
		o.state = StateLoaded
	}
	o.quotes = nil
	return nil
}

func (o *Orchestrator) busy() bool {
	return o.state == StateConfirming || o.state == StateSubmitting
}

// Load replaces the recipient set and drops every derived result.
func (o *Orchestrator) Load(set *RecipientSet) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy() {
		return fmt.Errorf("load in state %s: %w", o.state, ErrInvalidState)
	}
	if set == nil {
		set = NewRecipientSet(nil)
	}
	o.set = set
	o.quotes = nil
	o.outcomes = nil
	o.state = StateLoaded
	o.cfg.logf("loaded %d recipients", set.Len())
	return nil
}

func (o *Orchestrator) canSimulate() bool {
	return o.state == StateLoaded || o.state == StateSimulated || o.state == StateDone
}

// Simulate (re)computes the fee quotes. It may run any number of times
// while Loaded or Simulated. From Done it starts a new batch over the same
// recipients and drops the previous outcomes.
func (o *Orchestrator) Simulate(ctx context.Context) ([]SimulatedQuote, error) {
	o.mu.Lock()
	if !o.canSimulate() {
		st := o.state
		o.mu.Unlock()
		return nil, fmt.Errorf("simulate in state %s: %w", st, ErrInvalidState)
	}
	set, est := o.set, o.cfg.Estimator
	o.mu.Unlock()

	quotes, err := est.Estimate(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("estimate fees: %w", err)
	}
	if len(quotes) != set.Len() {
		return nil, fmt.Errorf("estimate fees: got %d quotes for %d recipients", len(quotes), set.Len())
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.set != set || !o.canSimulate() {
		return nil, fmt.Errorf("simulate: recipients changed during estimate: %w", ErrInvalidState)
	}
	o.quotes = quotes
	o.outcomes = nil
	o.runID = ""
	o.state = StateSimulated
	o.cfg.logf("simulated %d transfers, estimated fee %s", len(quotes), totalFee(quotes))
	return append([]SimulatedQuote(nil), quotes...), nil
}

func totalFee(quotes []SimulatedQuote) decimal.Decimal {
	sum := decimal.Zero
	for _, q := range quotes {
		if q.Err == nil {
			sum = sum.Add(q.Fee)
		}
	}
	return sum
}

// Send asks for confirmation and then submits one transfer per recipient,
// in order. Per-recipient failures are recorded in the outcomes and never
// stop the run. If ctx is cancelled, the remaining recipients are recorded
// as cancelled.
func (o *Orchestrator) Send(ctx context.Context) ([]TransferOutcome, error) {
	o.mu.Lock()
	if o.state != StateSimulated {
		st := o.state
		o.mu.Unlock()
		return nil, fmt.Errorf("send in state %s: %w", st, ErrInvalidState)
	}
	signer, chain := o.session.Signer(), o.session.Chain()
	if signer == nil || chain == nil {
		o.mu.Unlock()
		return nil, ErrNotConnected
	}
	set := o.set
	total, bad := set.Total(o.cfg.Decimals)
	summary := Summary{
		RunID:        uuid.NewString(),
		Signer:       signer.Address(),
		Recipients:   set.Len(),
		Total:        total,
		Unscalable:   bad,
		EstimatedFee: totalFee(o.quotes),
		Decimals:     o.cfg.Decimals,
	}
	o.state = StateConfirming
	o.mu.Unlock()

	if err := o.confirm(ctx, summary); err != nil {
		o.setState(StateSimulated)
		o.cfg.logf("[%s] submission declined: %v", summary.RunID, err)
		return nil, err
	}

	o.mu.Lock()
	o.state = StateSubmitting
	o.runID = summary.RunID
	o.outcomes = make([]TransferOutcome, 0, set.Len())
	o.mu.Unlock()
	o.cfg.logf("[%s] submitting %d transfers from %s", summary.RunID, set.Len(), summary.Signer)

	var limiter ratelimit.Limiter = ratelimit.NewUnlimited()
	if o.cfg.Pace > 0 {
		limiter = ratelimit.New(1, ratelimit.Per(o.cfg.Pace), ratelimit.WithoutSlack)
	}
	for i, rec := range set.Records() {
		var out TransferOutcome
		if err := ctx.Err(); err != nil {
			out = TransferOutcome{Index: i, Recipient: rec, Err: WrapError(KindSubmission, "", fmt.Errorf("%w: %v", ErrCancelled, err))}
		} else {
			limiter.Take()
			out = o.submitOne(ctx, chain, signer, i, rec)
		}
		o.record(summary.RunID, out)
	}

	o.setState(StateDone)
	r := o.Report()
	o.cfg.logf("[%s] done: %d ok, %d failed of %d", summary.RunID, r.Succeeded, r.Failed, r.Total)
	return o.Outcomes(), nil
}

// confirm runs the gate. A nil gate, a refusal and a panicking gate all
// decline.
func (o *Orchestrator) confirm(ctx context.Context, summary Summary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: confirmation panicked: %v", ErrDeclined, r)
		}
	}()
	if o.cfg.Confirm == nil || !o.cfg.Confirm(ctx, summary) {
		return ErrDeclined
	}
	return nil
}

func (o *Orchestrator) submitOne(ctx context.Context, chain ChainClient, signer Signer, i int, rec RecipientRecord) (out TransferOutcome) {
	out = TransferOutcome{Index: i, Recipient: rec}
	defer func() {
		if r := recover(); r != nil {
			out.Err = NewError(KindSubmission, fmt.Sprintf("panic during submission: %v", r))
		}
	}()
	amount, err := Scale(rec.Amount, o.cfg.Decimals)
	if err != nil {
		out.Err = WrapError(KindSubmission, "invalid amount", err)
		return out
	}
	out.Amount = amount
	call, err := chain.BuildTransfer(rec.Address, amount)
	if err != nil {
		out.Err = WrapError(KindSubmission, "build transfer", err)
		return out
	}
	h, err := signer.SignAndSend(ctx, call)
	if err != nil {
		out.Err = WrapError(KindSubmission, "sign and send", err)
		return out
	}
	out.Handle = h
	return out
}

func (o *Orchestrator) record(runID string, out TransferOutcome) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, out)
	o.mu.Unlock()
	if out.OK() {
		o.cfg.logf("[%s] #%d %s amount=%s OK %s", runID, out.Index+1, out.Recipient.Address, out.Recipient.Amount, out.Handle.Hex())
	} else {
		o.cfg.logf("[%s] #%d %s amount=%s FAILED %s", runID, out.Index+1, out.Recipient.Address, out.Recipient.Amount, out.Reason())
	}
	if o.cfg.OnOutcome != nil {
		o.cfg.OnOutcome(out)
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
