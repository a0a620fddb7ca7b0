package harness

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
)

// snapshot is the golden-file form of a run. Field order is fixed by the
// struct so snapshots are byte-stable.
type snapshot struct {
	Scenario string          `json:"scenario"`
	Steps    []stepSnapshot  `json:"steps"`
	Events   []eventSnapshot `json:"events"`
	Queries  []querySnapshot `json:"queries"`
}

type stepSnapshot struct {
	Kind    string   `json:"kind"`
	Outcome string   `json:"outcome"`
	Fields  []string `json:"fields,omitempty"`
}

type eventSnapshot struct {
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	Type       string `json:"type"`
	Date       string `json:"date"`
	InvoiceID  string `json:"invoiceId,omitempty"`
	ItemID     string `json:"itemId,omitempty"`
	Amount     int64  `json:"amount"`
	TaxRate    string `json:"taxRate,omitempty"`
	RecordedAt string `json:"recordedAt"`
}

type querySnapshot struct {
	Date        string `json:"date"`
	Owed        int64  `json:"owed"`
	Paid        int64  `json:"paid"`
	TaxPosition int64  `json:"taxPosition"`
	Lines       int    `json:"lines"`
}

// Snapshot renders a result as indented JSON with a trailing newline.
// Rejected steps list only the violated fields; messages are left out.
func Snapshot(name string, result *Result) ([]byte, error) {
	s := snapshot{
		Scenario: name,
		Steps:    make([]stepSnapshot, len(result.Steps)),
		Events:   make([]eventSnapshot, len(result.Events)),
		Queries:  make([]querySnapshot, len(result.Queries)),
	}
	for i, st := range result.Steps {
		ss := stepSnapshot{Kind: st.Kind, Outcome: st.Outcome}
		for _, v := range st.Violations {
			ss.Fields = append(ss.Fields, v.Field)
		}
		s.Steps[i] = ss
	}
	for i, e := range result.Events {
		es := eventSnapshot{
			Seq:        e.Seq,
			ID:         e.ID,
			Type:       string(e.Type),
			Date:       e.Date.UTC().Format(time.RFC3339Nano),
			InvoiceID:  e.InvoiceID,
			ItemID:     e.ItemID,
			Amount:     e.Amount,
			RecordedAt: e.RecordedAt.UTC().Format(time.RFC3339Nano),
		}
		if e.TaxRate.Valid {
			es.TaxRate = e.TaxRate.Decimal.String()
		}
		s.Events[i] = es
	}
	for i, q := range result.Queries {
		s.Queries[i] = querySnapshot{
			Date:        q.Date,
			Owed:        q.Position.Owed,
			Paid:        q.Position.Paid,
			TaxPosition: q.Position.TaxPosition,
			Lines:       q.Position.Lines,
		}
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	data, err := Snapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
