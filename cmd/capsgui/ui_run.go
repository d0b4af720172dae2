package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/ligun0805/caps-transfer/internal/transfercore"
)

// runSimulate refreshes the fee column with the chosen estimator.
func runSimulate(a fyne.App, estimator string) {
	defer func() {
		if r := recover(); r != nil {
			appendLogLine(a, fmt.Sprintf("[panic] %v", r))
		}
	}()
	chainMu.Lock()
	o, s, c, kind := orch, sess, client, sigKind
	chainMu.Unlock()
	if o == nil {
		dialog.ShowError(errors.New("connect to a node first"), mainWin)
		return
	}
	if o.Recipients().Len() == 0 {
		dialog.ShowInformation("Simulate", "Import a recipient list first", mainWin)
		return
	}

	var est transfercore.FeeEstimator = transfercore.FixedFee{Fee: settings.FeePlaceholder}
	if estimator == "dryrun" {
		from := ""
		if sg := s.Signer(); sg != nil {
			from = sg.Address()
		}
		est = transfercore.DryRunFee{Chain: c, From: from, Decimals: settings.TokenDecimals, SigKind: kind}
	}
	if err := o.SetEstimator(est); err != nil {
		dialog.ShowError(err, mainWin)
		return
	}

	pd := dialog.NewProgressInfinite("Simulate", "Estimating fees…", mainWin)
	pd.Show()
	quotes, err := o.Simulate(context.Background())
	pd.Hide()
	if err != nil {
		appendLogLine(a, "simulate: "+err.Error())
		dialog.ShowError(err, mainWin)
		return
	}
	for i, q := range quotes {
		telAdd(TelemetryItem{Time: now(), Action: "estimate", Index: i, Address: q.Recipient.Address, Amount: q.Recipient.Amount, Fee: q.Fee.String(), OK: q.Err == nil, Error: errText(q.Err)})
		updateRow(i, func(r *rowState) {
			r.status = statusQuoted
			r.detail = ""
			if q.Err != nil {
				r.fee = "n/a"
				r.detail = "Fee estimate failed: " + q.Err.Error()
				return
			}
			r.fee = q.Fee.String() + " " + settings.TokenSymbol
		})
	}
	refreshTables()
}

// runSend asks for confirmation and submits the batch. Progress and per-row
// status are driven by the orchestrator's outcome hook.
func runSend(a fyne.App) {
	defer func() {
		if r := recover(); r != nil {
			appendLogLine(a, fmt.Sprintf("[panic] %v", r))
		}
	}()
	o := currentOrchestrator()
	if o == nil {
		dialog.ShowError(errors.New("connect to a node first"), mainWin)
		return
	}
	runCtx, finish := startRun()
	defer finish()

	total := o.Recipients().Len()
	ensureLogWindow(a).Show()
	if logProg != nil {
		logProg.Min = 0
		logProg.Max = float64(total)
		logProg.SetValue(0)
	}
	if logProgLbl != nil {
		logProgLbl.SetText(fmt.Sprintf("0/%d", total))
	}

	outcomes, err := o.Send(runCtx)
	switch {
	case errors.Is(err, transfercore.ErrDeclined):
		appendLogLine(a, "send cancelled by operator")
		return
	case errors.Is(err, transfercore.ErrNotConnected):
		dialog.ShowError(errors.New("connect a signer first"), mainWin)
		return
	case errors.Is(err, transfercore.ErrInvalidState):
		dialog.ShowError(fmt.Errorf("%w (run SIMULATE first)", err), mainWin)
		return
	case err != nil:
		dialog.ShowError(err, mainWin)
		return
	}
	r := transfercore.Summarize(outcomes)
	msg := fmt.Sprintf("%d of %d transfers submitted, %d failed", r.Succeeded, r.Total, r.Failed)
	appendLogLine(a, "ALL: "+msg)
	dialog.ShowInformation("Done", msg, mainWin)
}

// confirmDialog blocks the submitting goroutine until the operator answers.
func confirmDialog(ctx context.Context, s transfercore.Summary) bool {
	msg := fmt.Sprintf("Send %s %s to %d recipients from\n%s?\n\nEstimated fee: %s %s",
		transfercore.FormatUnits(s.Total, s.Decimals), settings.TokenSymbol, s.Recipients, s.Signer,
		s.EstimatedFee.String(), settings.TokenSymbol)
	if s.Unscalable > 0 {
		msg += fmt.Sprintf("\n%d rows have an invalid amount and will fail.", s.Unscalable)
	}
	answer := make(chan bool, 1)
	dialog.ShowConfirm("Confirm transfers", msg, func(ok bool) { answer <- ok }, mainWin)
	select {
	case ok := <-answer:
		return ok
	case <-ctx.Done():
		return false
	}
}

func onOutcome(a fyne.App, r transfercore.TransferOutcome) {
	telAdd(TelemetryItem{
		Time: now(), Action: "submit", Index: r.Index, Address: r.Recipient.Address,
		Amount: r.Recipient.Amount, Hash: hashText(r), OK: r.OK(), Error: r.Reason(),
	})
	updateRow(r.Index, func(rs *rowState) {
		switch {
		case r.OK():
			rs.status = statusSubmitted + " " + short(r.Handle.Hex())
			rs.detail = fmt.Sprintf("Extrinsic hash: %s\nAmount: %s units", r.Handle.Hex(), r.Amount)
		case errors.Is(r.Err, transfercore.ErrCancelled):
			rs.status = statusCancelled
			rs.detail = r.Reason()
		case isRPCTimeout(r.Err):
			rs.status = statusTimeout
			rs.detail = r.Reason()
		default:
			rs.status = statusFailed
			rs.detail = r.Reason()
		}
	})
	refreshTables()
	done := r.Index + 1
	if logProg != nil {
		logProg.SetValue(float64(done))
	}
	if logProgLbl != nil {
		logProgLbl.SetText(fmt.Sprintf("%d/%d", done, rowCount()))
	}
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func hashText(r transfercore.TransferOutcome) string {
	if !r.OK() {
		return ""
	}
	return r.Handle.Hex()
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
