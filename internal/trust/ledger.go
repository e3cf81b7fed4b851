// Package trust keeps a clamped, exponentially smoothed confidence score per
// context key, updated from user feedback on surfaced suggestions.
package trust

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/grovetools/nudge/errors"
)

// DefaultSmoothing is the EMA smoothing factor used when none is configured.
const DefaultSmoothing = 0.1

// Outcome is the user's response to one surfaced candidate.
type Outcome int

const (
	// OutcomeInvalid is the zero value and is never accepted by Record.
	OutcomeInvalid Outcome = iota
	OutcomePositive
	OutcomeNegative
	OutcomeNeutral
)

// String returns the wire name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomePositive:
		return "positive"
	case OutcomeNegative:
		return "negative"
	case OutcomeNeutral:
		return "neutral"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Valid reports whether o is one of the three defined outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomePositive || o == OutcomeNegative || o == OutcomeNeutral
}

// Outcomes returns the three defined outcomes.
func Outcomes() []Outcome {
	return []Outcome{OutcomePositive, OutcomeNegative, OutcomeNeutral}
}

// ParseOutcome parses a wire name into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "accept", "accepted":
		return OutcomePositive, nil
	case "negative", "dismiss", "dismissed":
		return OutcomeNegative, nil
	case "neutral":
		return OutcomeNeutral, nil
	}
	return OutcomeInvalid, errors.InvalidOutcome(s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, errors.InvalidOutcome(o.String())
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Metrics is the feedback tally for one context key. It is observability only
// and never influences trigger decisions.
type Metrics struct {
	Positive    int     `json:"positive"`
	Negative    int     `json:"negative"`
	Neutral     int     `json:"neutral"`
	Total       int     `json:"total"`
	SuccessRate float64 `json:"success_rate"`
}

func (m *Metrics) observe(o Outcome) {
	switch o {
	case OutcomePositive:
		m.Positive++
	case OutcomeNegative:
		m.Negative++
	case OutcomeNeutral:
		m.Neutral++
	}
	m.Total++
	m.SuccessRate = float64(m.Positive) / float64(m.Total)
}

// Entry is a read-only view of one context key.
type Entry struct {
	ContextKey string  `json:"context_key"`
	Score      float64 `json:"score"`
	Metrics    Metrics `json:"metrics"`
}

type account struct {
	mu      sync.Mutex
	score   float64
	metrics Metrics
}

// Ledger holds one account per context key. Accounts are created lazily and
// live for the lifetime of the ledger. Updates to different keys never contend
// on the same lock.
type Ledger struct {
	alpha   float64
	initial float64

	mu       sync.RWMutex
	accounts map[string]*account
}

// NewLedger creates a ledger with smoothing factor alpha and starting score
// initial for new context keys. Out of range arguments are clamped.
func NewLedger(alpha, initial float64) *Ledger {
	if alpha <= 0 || alpha > 1 || math.IsNaN(alpha) {
		alpha = DefaultSmoothing
	}
	return &Ledger{
		alpha:    alpha,
		initial:  clamp(initial),
		accounts: make(map[string]*account),
	}
}

// Alpha returns the smoothing factor.
func (l *Ledger) Alpha() float64 { return l.alpha }

func (l *Ledger) account(key string) *account {
	l.mu.RLock()
	acc, ok := l.accounts[key]
	l.mu.RUnlock()
	if ok {
		return acc
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok := l.accounts[key]; ok {
		return acc
	}
	acc = &account{score: l.initial}
	l.accounts[key] = acc
	return acc
}

// Record applies one feedback outcome to key and returns the new score.
// An invalid outcome leaves the ledger untouched.
func (l *Ledger) Record(key string, outcome Outcome) (float64, error) {
	if !outcome.Valid() {
		return 0, errors.InvalidOutcome(outcome.String())
	}

	acc := l.account(key)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	switch outcome {
	case OutcomePositive:
		acc.score = clamp(acc.score + l.alpha*(1.0-acc.score))
	case OutcomeNegative:
		acc.score = clamp(acc.score + l.alpha*(0.0-acc.score))
	}
	acc.metrics.observe(outcome)

	if err := checkRange(key, acc.score); err != nil {
		return acc.score, err
	}
	return acc.score, nil
}

// Score returns the current score for key, creating the account if needed.
func (l *Ledger) Score(key string) (float64, error) {
	acc := l.account(key)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.score, checkRange(key, acc.score)
}

// Metrics returns the feedback tally for key.
func (l *Ledger) Metrics(key string) Metrics {
	acc := l.account(key)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.metrics
}

// ResetMetrics clears the tally for key. The score is left as is.
func (l *Ledger) ResetMetrics(key string) {
	acc := l.account(key)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.metrics = Metrics{}
}

// Snapshot returns every known context key, sorted by key.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	keys := make([]string, 0, len(l.accounts))
	accs := make(map[string]*account, len(l.accounts))
	for k, acc := range l.accounts {
		keys = append(keys, k)
		accs[k] = acc
	}
	l.mu.RUnlock()

	sort.Strings(keys)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		acc := accs[k]
		acc.mu.Lock()
		entries = append(entries, Entry{ContextKey: k, Score: acc.score, Metrics: acc.metrics})
		acc.mu.Unlock()
	}
	return entries
}

// clamp bounds s to [0, 1]. NaN is passed through so checkRange can report it.
func clamp(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func checkRange(key string, s float64) error {
	if math.IsNaN(s) || s < 0 || s > 1 {
		return errors.TrustOutOfRange(key, s)
	}
	return nil
}
