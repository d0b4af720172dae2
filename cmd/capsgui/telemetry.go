package main

import "sync"

// TelemetryItem is one exported estimate or submission event.
type TelemetryItem struct {
	Time    string `json:"time"`
	RunID   string `json:"runId,omitempty"`
	Action  string `json:"action"`
	Index   int    `json:"index"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Fee     string `json:"fee,omitempty"`
	Hash    string `json:"hash,omitempty"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

var (
	telemetry []TelemetryItem
	telMu     sync.Mutex
)

func telAdd(it TelemetryItem) {
	if it.RunID == "" && it.Action == "submit" {
		if o := currentOrchestrator(); o != nil {
			it.RunID = o.RunID()
		}
	}
	telMu.Lock()
	telemetry = append(telemetry, it)
	telMu.Unlock()
}

func telSnapshot() []TelemetryItem {
	telMu.Lock()
	defer telMu.Unlock()
	return append([]TelemetryItem(nil), telemetry...)
}
