// Package outbox journals every order intent handed to the brokerage gateway
// as JSONL, so dispatches are auditable and deduplicable across restarts.
package outbox

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/quantdesk/tradepilot/internal/upstream"
)

type Entry struct {
	Intent  upstream.OrderIntent `json:"intent"`
	Outcome string               `json:"outcome"` // "submitted" | "carted" | "failed"
	Event   time.Time            `json:"event"`
}

type Outbox struct {
	path         string
	dedupeWindow time.Duration
}

func New(path string, dedupeWindow time.Duration) (*Outbox, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &Outbox{path: path, dedupeWindow: dedupeWindow}, nil
}

// Record appends the intent with its dispatch outcome.
func (o *Outbox) Record(intent upstream.OrderIntent, outcome string) error {
	raw, err := json.Marshal(Entry{Intent: intent, Outcome: outcome, Event: time.Now().UTC()})
	if err != nil {
		return err
	}
	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(raw, '\n'))
	return err
}

// HasRecent reports whether an intent with the same idempotency key was
// journaled inside the dedupe window.
func (o *Outbox) HasRecent(idempotencyKey string) (bool, error) {
	f, err := os.Open(o.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	cutoff := time.Now().UTC().Add(-o.dedupeWindow)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if e.Event.Before(cutoff) {
			continue
		}
		if e.Intent.IdempotencyKey == idempotencyKey {
			return true, nil
		}
	}
	return false, sc.Err()
}
