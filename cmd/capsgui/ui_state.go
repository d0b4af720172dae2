package main

import (
	"context"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ligun0805/caps-transfer/internal/config"
	"github.com/ligun0805/caps-transfer/internal/signer"
	"github.com/ligun0805/caps-transfer/internal/substrate"
	"github.com/ligun0805/caps-transfer/internal/transfercore"
)

// Shared UI state. Widgets are touched from worker goroutines, the chain
// objects are guarded by chainMu and the table rows by rowsMu.
var (
	settings config.Settings

	mainWin fyne.Window

	chainMu  sync.Mutex
	sess     *transfercore.Session
	client   *substrate.Client
	orch     *transfercore.Orchestrator
	provider *signer.RPCProvider
	sigKind  substrate.SignatureKind
	loaded   *transfercore.RecipientSet

	runCancel context.CancelFunc
	runSeq    uint64

	viewWin fyne.Window
	logWin  fyne.Window

	logBox     *widget.Entry
	logProg    *widget.ProgressBar
	logProgLbl *widget.Label
	logScroll  *container.Scroll

	viewFilter *widget.Entry
	viewStatus *widget.Select
	viewAsc    *widget.Check
	viewIdx    []int
	viewTable  *widget.Table

	rowsMu          sync.Mutex
	rows            []rowState
	recipientsTable *widget.Table

	statusLbl *widget.Label
	signerLbl *widget.Label
)

// rowState is what the recipients table shows for one record.
type rowState struct {
	rec    transfercore.RecipientRecord
	fee    string
	status string
	detail string
}

const (
	statusPending   = "PENDING"
	statusQuoted    = "QUOTED"
	statusSubmitted = "SUBMITTED"
	statusFailed    = "FAILED"
	statusTimeout   = "TIMEOUT"
	statusCancelled = "CANCELLED"
)

func currentOrchestrator() *transfercore.Orchestrator {
	chainMu.Lock()
	defer chainMu.Unlock()
	return orch
}

// startRun registers a cancellable context for one SEND. The returned
// finish func cancels it and clears the registration unless a newer run
// replaced it.
func startRun() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	chainMu.Lock()
	runSeq++
	seq := runSeq
	runCancel = cancel
	chainMu.Unlock()
	return ctx, func() {
		cancel()
		chainMu.Lock()
		if runSeq == seq {
			runCancel = nil
		}
		chainMu.Unlock()
	}
}

// stopRun cancels the active SEND, reporting whether one was running.
func stopRun() bool {
	chainMu.Lock()
	cancel := runCancel
	chainMu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

func resetRows(set *transfercore.RecipientSet) {
	rowsMu.Lock()
	rows = make([]rowState, 0, set.Len())
	for _, r := range set.Records() {
		rows = append(rows, rowState{rec: r, status: statusPending})
	}
	rowsMu.Unlock()
	refreshTables()
}

func updateRow(i int, fn func(*rowState)) {
	rowsMu.Lock()
	if i >= 0 && i < len(rows) {
		fn(&rows[i])
	}
	rowsMu.Unlock()
}

func rowAt(i int) (rowState, bool) {
	rowsMu.Lock()
	defer rowsMu.Unlock()
	if i < 0 || i >= len(rows) {
		return rowState{}, false
	}
	return rows[i], true
}

func rowCount() int {
	rowsMu.Lock()
	defer rowsMu.Unlock()
	return len(rows)
}

func refreshTables() {
	if recipientsTable != nil {
		recipientsTable.Refresh()
	}
	if viewWin != nil && viewTable != nil {
		rebuildViewIdx()
		viewTable.Refresh()
	}
}
