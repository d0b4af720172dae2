package transfercore

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
)

// RecipientRecord is one row of the uploaded file. Amount stays in display
// units and is not validated at load time.
type RecipientRecord struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Line    int    `json:"line"`
}

// RecipientSet is the ordered, immutable list of recipients of one upload.
type RecipientSet struct {
	records []RecipientRecord
}

// NewRecipientSet copies records into a new set.
func NewRecipientSet(records []RecipientRecord) *RecipientSet {
	return &RecipientSet{records: append([]RecipientRecord(nil), records...)}
}

func (s *RecipientSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

func (s *RecipientSet) At(i int) RecipientRecord { return s.records[i] }

// Records returns a copy of the rows in file order.
func (s *RecipientSet) Records() []RecipientRecord {
	if s == nil {
		return nil
	}
	return append([]RecipientRecord(nil), s.records...)
}

// Total sums the rows whose amount scales cleanly and counts the others.
func (s *RecipientSet) Total(decimals int32) (*big.Int, int) {
	total, bad := new(big.Int), 0
	for _, r := range s.Records() {
		v, err := Scale(r.Amount, decimals)
		if err != nil {
			bad++
			continue
		}
		total.Add(total, v)
	}
	return total, bad
}

// LoadFile reads path as JSON when it ends in .json, as CSV otherwise.
func LoadFile(path string) (*RecipientSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(KindParse, "open recipients file", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(bytes.NewReader(data))
	}
	return Load(bytes.NewReader(data))
}

// Load parses comma (or semicolon) separated text with a header row that
// names at least the address and amount columns. Rows are kept as-is;
// malformed amounts fail later, at submission.
func Load(r io.Reader) (*RecipientSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, WrapError(KindParse, "read recipients", err)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewError(KindParse, "recipients file is empty")
		}
		return nil, WrapError(KindParse, "read header", err)
	}
	addrCol, amountCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "address":
			addrCol = i
		case "amount":
			amountCol = i
		}
	}
	if addrCol < 0 || amountCol < 0 {
		return nil, NewError(KindParse, fmt.Sprintf("header must contain address and amount columns, got %q", strings.Join(header, ",")))
	}

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	var out []RecipientRecord
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, WrapError(KindParse, "read row", err)
		}
		if blankRow(row) {
			continue
		}
		line, _ := reader.FieldPos(0)
		out = append(out, RecipientRecord{Address: cell(row, addrCol), Amount: cell(row, amountCol), Line: line})
	}
	return &RecipientSet{records: out}, nil
}

// LoadJSON parses an array of {"address": ..., "amount": ...} objects.
// Amounts may be JSON strings or numbers.
func LoadJSON(r io.Reader) (*RecipientSet, error) {
	var arr []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&arr); err != nil {
		return nil, WrapError(KindParse, "decode recipients json", err)
	}
	out := make([]RecipientRecord, 0, len(arr))
	for i, m := range arr {
		addr, okA := m["address"]
		amount, okB := m["amount"]
		if !okA || !okB {
			return nil, NewError(KindParse, fmt.Sprintf("entry %d: address and amount keys are required", i))
		}
		out = append(out, RecipientRecord{Address: rawText(addr), Amount: rawText(amount), Line: i + 1})
	}
	return &RecipientSet{records: out}, nil
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func detectDelimiter(data []byte) rune {
	for _, l := range strings.Split(string(data), "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if strings.Contains(l, ";") && !strings.Contains(l, ",") {
			return ';'
		}
		break
	}
	return ','
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
