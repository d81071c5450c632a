// Package lottery implements the chance-weighted prize drawing over
// member referral counts. The pool is built by integer replication (one
// slot per chance) and a draw is a discrete uniform pick over the
// slots, so a candidate's win probability is chances/sum(chances) over
// the eligible candidates at that moment; no floating-point weighting
// is involved.
package lottery

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Candidate is one weighted entrant, derived from the current report:
// chances is the member's total given referrals. Ephemeral and not
// persisted.
type Candidate struct {
	Name    string `json:"name"`
	Chances int    `json:"chances"`
}

// Record is one successful draw in the append-only log. Round is the
// 1-based position within its session.
type Record struct {
	ID        string    `json:"id"`
	Winner    string    `json:"winner"`
	Timestamp time.Time `json:"timestamp"`
	Round     int       `json:"round"`
	SessionID string    `json:"session_id"`
}

// Persister receives draw log and policy mutations. A nil Persister
// disables persistence.
type Persister interface {
	SaveLotteryRecord(Record) error
	DeleteAllLotteryRecords() error
	SaveExcludePolicy(bool) error
}

// Engine holds the lottery state. Draws are serialized under one mutex:
// a draw is a read-modify-write over the log and two concurrent draws
// must not double-assign a round number.
type Engine struct {
	mu             sync.Mutex
	candidates     []Candidate
	records        []Record
	sessionID      string // empty until a session starts
	excludeWinners bool

	intN  func(n int) int
	store Persister
	log   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandSource replaces the uniform index source, for deterministic
// tests.
func WithRandSource(intN func(n int) int) Option {
	return func(e *Engine) { e.intN = intN }
}

// WithPersister attaches a draw log store.
func WithPersister(store Persister) Option {
	return func(e *Engine) { e.store = store }
}

// NewEngine creates a lottery engine. excludeWinners controls whether a
// session's past winners are removed from subsequent pools.
func NewEngine(excludeWinners bool, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		excludeWinners: excludeWinners,
		intN:           rand.IntN,
		log:            log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetCandidates replaces the candidate pool. Called each time a report
// becomes current.
func (e *Engine) SetCandidates(candidates []Candidate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candidates = append([]Candidate(nil), candidates...)
}

// Candidates returns the current candidate pool.
func (e *Engine) Candidates() []Candidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Candidate(nil), e.candidates...)
}

// SetExcludeWinners toggles the per-session exclusion policy.
func (e *Engine) SetExcludeWinners(exclude bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.excludeWinners = exclude

	if e.store != nil {
		if err := e.store.SaveExcludePolicy(exclude); err != nil {
			e.log.Warn("failed to persist exclusion policy", zap.Error(err))
		}
	}
}

// ExcludeWinners reports the current exclusion policy.
func (e *Engine) ExcludeWinners() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.excludeWinners
}

// StartNewSession opens a fresh session scope. The cumulative record
// log is kept; only the session views and exclusion sets move to the
// new id.
func (e *Engine) StartNewSession() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionID = uuid.NewString()
	return e.sessionID
}

// DrawOne draws a single winner, starting a session implicitly if none
// is active. An empty or fully excluded pool yields ok=false, never an
// error.
func (e *Engine) DrawOne() (winner string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drawLocked()
}

// DrawMany draws n winners sequentially. Each iteration rebuilds the
// pool against all wins recorded so far, so under the exclusion policy
// a member can win at most once per batch; iterations that find the
// pool exhausted stop the batch early. Every win is individually
// recorded.
func (e *Engine) DrawMany(n int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var winners []string
	for i := 0; i < n; i++ {
		winner, ok := e.drawLocked()
		if !ok {
			break
		}
		winners = append(winners, winner)
	}
	return winners
}

// SessionRecords returns all records of the current session in
// ascending round order. No session means no records.
func (e *Engine) SessionRecords() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sessionID == "" {
		return nil
	}
	recs := e.sessionRecordsLocked()
	sort.Slice(recs, func(i, j int) bool { return recs[i].Round < recs[j].Round })
	return recs
}

// Records returns the full cumulative draw log.
func (e *Engine) Records() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Record(nil), e.records...)
}

// Restore replaces the record log from persisted state without writing
// back to the store.
func (e *Engine) Restore(records []Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = append([]Record(nil), records...)
}

// ClearRecords drops the draw history and closes the session.
func (e *Engine) ClearRecords() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.records = nil
	e.sessionID = ""

	if e.store != nil {
		if err := e.store.DeleteAllLotteryRecords(); err != nil {
			e.log.Warn("failed to clear persisted lottery records", zap.Error(err))
		}
	}
}

func (e *Engine) drawLocked() (string, bool) {
	if e.sessionID == "" {
		e.sessionID = uuid.NewString()
	}

	pool := e.buildPoolLocked()
	if len(pool) == 0 {
		return "", false
	}

	winner := pool[e.intN(len(pool))]

	rec := Record{
		ID:        uuid.NewString(),
		Winner:    winner,
		Timestamp: time.Now(),
		Round:     len(e.sessionRecordsLocked()) + 1,
		SessionID: e.sessionID,
	}
	e.records = append(e.records, rec)

	if e.store != nil {
		if err := e.store.SaveLotteryRecord(rec); err != nil {
			e.log.Warn("failed to persist lottery record",
				zap.String("winner", winner), zap.Error(err))
		}
	}

	return winner, true
}

// buildPoolLocked flattens eligible candidates into the weighted pool.
// Once a candidate has won in this session, all of their remaining
// chances are void under the exclusion policy, not reduced by one.
func (e *Engine) buildPoolLocked() []string {
	var sessionWinners map[string]bool
	if e.excludeWinners {
		sessionWinners = make(map[string]bool)
		for _, r := range e.records {
			if r.SessionID == e.sessionID {
				sessionWinners[r.Winner] = true
			}
		}
	}

	var pool []string
	for _, c := range e.candidates {
		if e.excludeWinners && sessionWinners[c.Name] {
			continue
		}
		for i := 0; i < c.Chances; i++ {
			pool = append(pool, c.Name)
		}
	}
	return pool
}

func (e *Engine) sessionRecordsLocked() []Record {
	var recs []Record
	for _, r := range e.records {
		if r.SessionID == e.sessionID {
			recs = append(recs, r)
		}
	}
	return recs
}
