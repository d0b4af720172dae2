package transfercore

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/ligun0805/caps-transfer/internal/substrate"
)

// ReferenceFee is the constant per-recipient placeholder fee, in display units.
var ReferenceFee = decimal.RequireFromString("0.001")

// SimulatedQuote is the non-binding fee estimate for one recipient.
type SimulatedQuote struct {
	Recipient RecipientRecord
	Fee       decimal.Decimal
	Err       error
}

// FeeEstimator returns one quote per recipient, index-aligned with the set.
// Implementations never sign or submit anything.
type FeeEstimator interface {
	Estimate(ctx context.Context, set *RecipientSet) ([]SimulatedQuote, error)
}

// FixedFee quotes the same fee for every recipient.
type FixedFee struct {
	Fee decimal.Decimal
}

func (f FixedFee) Estimate(_ context.Context, set *RecipientSet) ([]SimulatedQuote, error) {
	out := make([]SimulatedQuote, 0, set.Len())
	for _, r := range set.Records() {
		out = append(out, SimulatedQuote{Recipient: r, Fee: f.Fee})
	}
	return out, nil
}

// FeeQuerier is the read-only part of the chain client used for dry runs.
type FeeQuerier interface {
	BuildTransfer(dest string, amount *big.Int) (*substrate.Call, error)
	PrepareSigning(ctx context.Context, address string, call *substrate.Call) (*substrate.SigningPayload, error)
	QueryFee(ctx context.Context, ext []byte) (*big.Int, error)
}

// DryRunFee asks the node for each transfer's fee using an extrinsic that
// carries an all-zero signature. Nothing is signed or broadcast.
type DryRunFee struct {
	Chain    FeeQuerier
	From     string
	Decimals int32
	SigKind  substrate.SignatureKind
}

func (d DryRunFee) Estimate(ctx context.Context, set *RecipientSet) ([]SimulatedQuote, error) {
	if d.From == "" {
		return nil, fmt.Errorf("dry-run estimate: %w", ErrNotConnected)
	}
	records := set.Records()
	out := make([]SimulatedQuote, len(records))
	for i, r := range records {
		out[i] = SimulatedQuote{Recipient: r}
		fee, err := d.quote(ctx, r)
		if err != nil {
			out[i].Err = err
			continue
		}
		out[i].Fee = ToDecimal(fee, d.Decimals)
	}
	return out, nil
}

func (d DryRunFee) quote(ctx context.Context, r RecipientRecord) (*big.Int, error) {
	amount, err := Scale(r.Amount, d.Decimals)
	if err != nil {
		return nil, err
	}
	call, err := d.Chain.BuildTransfer(r.Address, amount)
	if err != nil {
		return nil, err
	}
	payload, err := d.Chain.PrepareSigning(ctx, d.From, call)
	if err != nil {
		return nil, err
	}
	return d.Chain.QueryFee(ctx, payload.Extrinsic(substrate.EmptySignature(d.SigKind)))
}
