package transfercore

import (
	"math/big"

	"github.com/ligun0805/caps-transfer/internal/substrate"
)

// TransferOutcome is the result of submitting one recipient's transfer.
type TransferOutcome struct {
	Index     int
	Recipient RecipientRecord
	Amount    *big.Int // minimal units; nil when the amount did not scale
	Handle    substrate.Hash
	Err       error
}

func (o TransferOutcome) OK() bool { return o.Err == nil }

// Reason is the failure text, empty on success.
func (o TransferOutcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Report aggregates outcomes of one run.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
}

func Summarize(outcomes []TransferOutcome) Report {
	r := Report{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.OK() {
			r.Succeeded++
		} else {
			r.Failed++
		}
	}
	return r
}
