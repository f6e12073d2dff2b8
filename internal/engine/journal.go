package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"crossbot/internal/strategy"
)

// Entry is one journaled tick evaluation, written as a single NDJSON
// line.
type Entry struct {
	RunID    string          `json:"run_id"`
	Time     time.Time       `json:"time"`
	Symbol   string          `json:"symbol"`
	Price    float64         `json:"price"`
	ShortAvg float64         `json:"short_avg,omitempty"`
	LongAvg  float64         `json:"long_avg,omitempty"`
	IsLong   bool            `json:"is_long"`
	GateOpen bool            `json:"gate_open"`
	Action   strategy.Action `json:"action,omitempty"`
	Qty      int             `json:"qty,omitempty"`
	OrderID  int64           `json:"order_id,omitempty"`
	Result   string          `json:"result"`
}

// Journal appends evaluation entries to a file, one JSON object per
// line. A nil *Journal discards entries, which keeps the hot path free
// of conditionals at call sites.
type Journal struct {
	runID  string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

func NewJournal(path string, runID string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Journal{
		runID:  runID,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.runID
}

func (j *Journal) Append(entry Entry) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	entry.RunID = j.runID
	payload, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal journal entry: %v\n", err)
		return
	}
	if _, err := j.writer.Write(append(payload, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write journal entry: %v\n", err)
		return
	}
	if err := j.writer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush journal: %v\n", err)
	}
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		_ = j.file.Close()
		return err
	}
	return j.file.Close()
}
