package transfercore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSet(addrs ...string) *RecipientSet {
	recs := make([]RecipientRecord, len(addrs))
	for i, a := range addrs {
		recs[i] = RecipientRecord{Address: a, Amount: "1.5", Line: i + 2}
	}
	return NewRecipientSet(recs)
}

// newConnected returns an orchestrator in the Simulated state with a
// connected fake signer.
func newConnected(t *testing.T, set *RecipientSet, cfg Config) (*Orchestrator, *fakeChain, *fakeSigner) {
	t.Helper()
	chain, sg := &fakeChain{}, &fakeSigner{}
	sess := NewSession(chain)
	require.NoError(t, sess.Connect(context.Background(), factoryFor(sg)))
	if cfg.Decimals == 0 {
		cfg.Decimals = DefaultDecimals
	}
	o := NewOrchestrator(sess, cfg)
	require.NoError(t, o.Load(set))
	_, err := o.Simulate(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateSimulated, o.State())
	return o, chain, sg
}

func TestSendSubmitsInOrder(t *testing.T) {
	var seen []int
	o, chain, sg := newConnected(t, validSet("A", "B", "C"), Config{
		Confirm:   AlwaysConfirm,
		OnOutcome: func(r TransferOutcome) { seen = append(seen, r.Index) },
	})

	outcomes, err := o.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, o.State())

	assert.Equal(t, []sendCall{{"A", "1500000"}, {"B", "1500000"}, {"C", "1500000"}}, sg.sent())
	assert.Equal(t, []string{"A", "B", "C"}, chain.built)
	assert.Equal(t, []int{0, 1, 2}, seen)
	require.Len(t, outcomes, 3)
	for i, r := range outcomes {
		assert.True(t, r.OK())
		assert.Equal(t, i, r.Index)
		assert.Equal(t, byte(i+1), r.Handle[0])
		assert.Equal(t, "1500000", r.Amount.String())
	}
	assert.Equal(t, Report{Total: 3, Succeeded: 3}, o.Report())
	assert.NotEmpty(t, o.RunID())
}

func TestSendTwoRecipientsSucceed(t *testing.T) {
	o, _, sg := newConnected(t, validSet("A", "B"), Config{Confirm: AlwaysConfirm})
	outcomes, err := o.Send(context.Background())
	require.NoError(t, err)
	assert.Len(t, sg.sent(), 2)
	assert.Equal(t, Report{Total: 2, Succeeded: 2}, Summarize(outcomes))
	assert.Equal(t, StateDone, o.State())
}

func TestSendDeclinedMakesNoCalls(t *testing.T) {
	for name, confirm := range map[string]ConfirmFunc{
		"declined": func(context.Context, Summary) bool { return false },
		"nil gate": nil,
	} {
		t.Run(name, func(t *testing.T) {
			o, chain, sg := newConnected(t, validSet("A", "B"), Config{Confirm: confirm})
			outcomes, err := o.Send(context.Background())
			assert.ErrorIs(t, err, ErrDeclined)
			assert.Nil(t, outcomes)
			assert.Empty(t, sg.sent())
			assert.Empty(t, chain.built)
			assert.Equal(t, StateSimulated, o.State())
		})
	}
}

func TestConfirmSeesSummary(t *testing.T) {
	var got Summary
	var stateDuring State
	var o *Orchestrator
	set := NewRecipientSet([]RecipientRecord{{Address: "A", Amount: "1.5"}, {Address: "B", Amount: "2"}, {Address: "C", Amount: "x"}})
	o, _, _ = newConnected(t, set, Config{Confirm: func(_ context.Context, s Summary) bool {
		got = s
		stateDuring = o.State()
		return false
	}})
	_, _ = o.Send(context.Background())

	assert.Equal(t, StateConfirming, stateDuring)
	assert.Equal(t, "5SIGNER", got.Signer)
	assert.Equal(t, 3, got.Recipients)
	assert.Equal(t, "3500000", got.Total.String())
	assert.Equal(t, 1, got.Unscalable)
	assert.Equal(t, "0.003", got.EstimatedFee.String())
	assert.NotEmpty(t, got.RunID)
}

func TestSendSecondRecipientFails(t *testing.T) {
	o, _, sg := newConnected(t, validSet("A", "B"), Config{Confirm: AlwaysConfirm})
	sg.fail = map[string]error{"B": errRejected}

	outcomes, err := o.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, o.State())
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].OK())
	assert.False(t, outcomes[1].OK())
	assert.True(t, IsKind(outcomes[1].Err, KindSubmission))
	assert.ErrorIs(t, outcomes[1].Err, errRejected)
	assert.Contains(t, outcomes[1].Reason(), "1010")
}

func TestSendInvalidAmountIsRecordedNotSent(t *testing.T) {
	set := NewRecipientSet([]RecipientRecord{{Address: "A", Amount: "-1"}, {Address: "B", Amount: "2"}})
	o, chain, sg := newConnected(t, set, Config{Confirm: AlwaysConfirm})

	outcomes, err := o.Send(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.True(t, IsKind(outcomes[0].Err, KindSubmission))
	assert.True(t, IsKind(outcomes[0].Err, KindRowValidation))
	assert.Nil(t, outcomes[0].Amount)
	assert.True(t, outcomes[1].OK())
	assert.Equal(t, []string{"B"}, chain.built)
	assert.Len(t, sg.sent(), 1)
}

func TestSendBadAddressIsRecorded(t *testing.T) {
	o, chain, sg := newConnected(t, validSet("A", "bad", "C"), Config{Confirm: AlwaysConfirm})
	chain.badDest = map[string]bool{"bad": true}

	outcomes, err := o.Send(context.Background())
	require.NoError(t, err)
	assert.False(t, outcomes[1].OK())
	assert.True(t, IsKind(outcomes[1].Err, KindSubmission))
	assert.Len(t, sg.sent(), 2)
}

func TestSendRecoversFromPanics(t *testing.T) {
	o, _, sg := newConnected(t, validSet("A", "B", "C"), Config{Confirm: AlwaysConfirm})
	sg.panicOn = "B"

	outcomes, err := o.Send(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].OK())
	assert.True(t, IsKind(outcomes[1].Err, KindSubmission))
	assert.Contains(t, outcomes[1].Reason(), "signer exploded")
	assert.True(t, outcomes[2].OK())
	assert.Equal(t, StateDone, o.State())
}

func TestSendCancelledMidBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o, _, sg := newConnected(t, validSet("A", "B", "C", "D"), Config{Confirm: AlwaysConfirm})
	sg.onSend = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	outcomes, err := o.Send(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 4)
	assert.Len(t, sg.sent(), 2)
	assert.True(t, outcomes[0].OK())
	assert.True(t, outcomes[1].OK())
	for _, r := range outcomes[2:] {
		assert.ErrorIs(t, r.Err, ErrCancelled)
		assert.True(t, IsKind(r.Err, KindSubmission))
	}
	assert.Equal(t, StateDone, o.State())
}

func TestSendRequiresSignerAndState(t *testing.T) {
	sess := NewSession(&fakeChain{})
	o := NewOrchestrator(sess, Config{Confirm: AlwaysConfirm, Decimals: DefaultDecimals})

	_, err := o.Simulate(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = o.Send(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, o.Load(validSet("A")))
	_, err = o.Send(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState, "send before simulate")

	_, err = o.Simulate(context.Background())
	require.NoError(t, err)
	_, err = o.Send(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, StateSimulated, o.State())
}

func TestSignerInitFailureKeepsRecipients(t *testing.T) {
	sess := NewSession(&fakeChain{})
	o := NewOrchestrator(sess, Config{Decimals: DefaultDecimals})
	set := validSet("A", "B")
	require.NoError(t, o.Load(set))

	err := sess.Connect(context.Background(), func(context.Context) (Signer, error) {
		return nil, WrapError(KindSignerInit, "local key", errors.New("empty secret phrase"))
	})
	assert.True(t, IsKind(err, KindSignerInit))
	assert.False(t, sess.Connected())
	assert.Equal(t, StateLoaded, o.State())
	assert.Same(t, set, o.Recipients())
}

func TestLoadResetsDerivedResults(t *testing.T) {
	o, _, _ := newConnected(t, validSet("A"), Config{Confirm: AlwaysConfirm})
	_, err := o.Send(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, o.Outcomes())

	require.NoError(t, o.Load(validSet("B", "C")))
	assert.Equal(t, StateLoaded, o.State())
	assert.Empty(t, o.Quotes())
	assert.Empty(t, o.Outcomes())
	assert.Equal(t, 2, o.Recipients().Len())
}

func TestLoadRejectedWhileConfirming(t *testing.T) {
	var loadErr error
	var o *Orchestrator
	o, _, _ = newConnected(t, validSet("A"), Config{Confirm: func(context.Context, Summary) bool {
		loadErr = o.Load(validSet("B"))
		return false
	}})
	_, _ = o.Send(context.Background())
	assert.ErrorIs(t, loadErr, ErrInvalidState)
	assert.Equal(t, "A", o.Recipients().At(0).Address)
}

func TestSimulateRepeatable(t *testing.T) {
	o, _, _ := newConnected(t, validSet("A", "B"), Config{})
	first := o.Quotes()
	again, err := o.Simulate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, StateSimulated, o.State())
}

func TestSimulateAfterDoneStartsNewBatch(t *testing.T) {
	o, _, sg := newConnected(t, validSet("A", "B"), Config{Confirm: AlwaysConfirm})
	_, err := o.Send(context.Background())
	require.NoError(t, err)
	firstRun := o.RunID()

	quotes, err := o.Simulate(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
	assert.Equal(t, StateSimulated, o.State())
	assert.Empty(t, o.Outcomes())
	assert.Empty(t, o.RunID())

	outcomes, err := o.Send(context.Background())
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
	assert.Len(t, sg.sent(), 4)
	assert.NotEqual(t, firstRun, o.RunID())
}

func TestSendPanickingConfirmDeclines(t *testing.T) {
	o, chain, sg := newConnected(t, validSet("A"), Config{Confirm: func(context.Context, Summary) bool {
		panic("dialog closed")
	}})

	outcomes, err := o.Send(context.Background())
	assert.ErrorIs(t, err, ErrDeclined)
	assert.ErrorContains(t, err, "dialog closed")
	assert.Nil(t, outcomes)
	assert.Empty(t, sg.sent())
	assert.Empty(t, chain.built)
	assert.Equal(t, StateSimulated, o.State())

	require.NoError(t, o.Load(validSet("B")))
	assert.Equal(t, StateLoaded, o.State())
}

type shortEstimator struct{}

func (shortEstimator) Estimate(context.Context, *RecipientSet) ([]SimulatedQuote, error) {
	return nil, nil
}

type failingEstimator struct{}

func (failingEstimator) Estimate(context.Context, *RecipientSet) ([]SimulatedQuote, error) {
	return nil, errors.New("rpc down")
}

func TestSimulateEstimatorErrors(t *testing.T) {
	o := NewOrchestrator(NewSession(&fakeChain{}), Config{Estimator: shortEstimator{}})
	require.NoError(t, o.Load(validSet("A")))
	_, err := o.Simulate(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateLoaded, o.State())

	require.NoError(t, o.SetEstimator(failingEstimator{}))
	_, err = o.Simulate(context.Background())
	assert.ErrorContains(t, err, "rpc down")
	assert.Equal(t, StateLoaded, o.State())
}

func TestSetEstimatorDropsQuotes(t *testing.T) {
	o, _, _ := newConnected(t, validSet("A"), Config{})
	require.NoError(t, o.SetEstimator(FixedFee{Fee: ReferenceFee}))
	assert.Equal(t, StateLoaded, o.State())
	assert.Empty(t, o.Quotes())
}

func TestSendPacesSubmissions(t *testing.T) {
	o, _, sg := newConnected(t, validSet("A", "B", "C"), Config{Confirm: AlwaysConfirm, Pace: 30 * time.Millisecond})
	start := time.Now()
	_, err := o.Send(context.Background())
	require.NoError(t, err)
	assert.Len(t, sg.sent(), 3)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Submitting", StateSubmitting.String())
	assert.Equal(t, "State(42)", State(42).String())
}
