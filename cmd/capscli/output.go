package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ligun0805/caps-transfer/internal/transfercore"
)

// outputs are the per-run ok/bad CSV reports.
type outputs struct {
	okF, badF io.Closer
	ok, bad   *csv.Writer
}

func openOutputs(okPath, badPath string) (*outputs, error) {
	okF, err := os.Create(okPath)
	if err != nil {
		return nil, err
	}
	badF, err := os.Create(badPath)
	if err != nil {
		_ = okF.Close()
		return nil, err
	}
	out := &outputs{okF: okF, badF: badF, ok: csv.NewWriter(okF), bad: csv.NewWriter(badF)}
	_ = out.ok.Write([]string{"line", "address", "amount", "units", "hash"})
	_ = out.bad.Write([]string{"line", "address", "amount", "reason"})
	return out, nil
}

func (o *outputs) Write(r transfercore.TransferOutcome) {
	line := strconv.Itoa(r.Recipient.Line)
	if r.OK() {
		_ = o.ok.Write([]string{line, r.Recipient.Address, r.Recipient.Amount, r.Amount.String(), r.Handle.Hex()})
		o.ok.Flush()
		return
	}
	_ = o.bad.Write([]string{line, r.Recipient.Address, r.Recipient.Amount, r.Reason()})
	o.bad.Flush()
}

func (o *outputs) Close() {
	o.ok.Flush()
	o.bad.Flush()
	_ = o.okF.Close()
	_ = o.badF.Close()
}

func printQuotes(quotes []transfercore.SimulatedQuote, symbol string) {
	total := decimal.Zero
	failed := 0
	for i, q := range quotes {
		if q.Err != nil {
			failed++
			fmt.Printf("%4d. %-50s %14s  fee: error: %v\n", i+1, q.Recipient.Address, q.Recipient.Amount, q.Err)
			continue
		}
		total = total.Add(q.Fee)
		fmt.Printf("%4d. %-50s %14s  fee: %s %s\n", i+1, q.Recipient.Address, q.Recipient.Amount, q.Fee.String(), symbol)
	}
	fmt.Printf("Estimated total fee: %s %s for %d transfers", total.String(), symbol, len(quotes))
	if failed > 0 {
		fmt.Printf(" (%d could not be estimated)", failed)
	}
	fmt.Println()
}

func printOutcome(r transfercore.TransferOutcome) {
	if r.OK() {
		fmt.Printf("  #%d %s %s -> OK %s\n", r.Index+1, maskAddress(r.Recipient.Address), r.Recipient.Amount, r.Handle.Hex())
		return
	}
	fmt.Printf("  #%d %s %s -> FAILED: %s\n", r.Index+1, maskAddress(r.Recipient.Address), r.Recipient.Amount, r.Reason())
}
