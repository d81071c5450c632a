// Package rating maintains the long-lived traffic-light table keyed by
// member name. Records outlive any single report: half-year ingestions
// update them in place and manual overrides pin a tier against
// recomputation.
package rating

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chapterops/palms-server/internal/scoring"
)

// Record is one member's current rating.
type Record struct {
	ID         string          `json:"id"`
	MemberName string          `json:"member_name"`
	Status     scoring.Status  `json:"status"`
	Scores     scoring.Scores  `json:"scores"`
	RawData    scoring.RawData `json:"raw_data"`
	// IsManualOverride freezes Status against recomputation until the
	// override is cleared. Scores and RawData keep updating underneath.
	IsManualOverride bool      `json:"is_manual_override"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Persister receives every table mutation. A nil Persister disables
// persistence.
type Persister interface {
	SaveRating(Record) error
	DeleteAllRatings() error
}

// Table is the process-wide rating state. All operations are atomic
// read-modify-write under one mutex so concurrent API requests cannot
// lose updates.
type Table struct {
	mu      sync.Mutex
	order   []string // member names in insertion order
	records map[string]*Record
	store   Persister
	log     *zap.Logger
}

// NewTable creates an empty rating table. store may be nil.
func NewTable(store Persister, log *zap.Logger) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	return &Table{
		records: make(map[string]*Record),
		store:   store,
		log:     log,
	}
}

// Upsert computes scores and tier for memberName from raw metrics and
// inserts or updates its record. An existing manual override keeps its
// pinned status; scores and raw data are overwritten either way.
func (t *Table) Upsert(memberName string, raw scoring.RawData) Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	scores := scoring.Calculate(raw)
	status := scoring.Classify(scores.Total)

	rec, ok := t.records[memberName]
	if !ok {
		rec = &Record{
			ID:         uuid.NewString(),
			MemberName: memberName,
		}
		t.records[memberName] = rec
		t.order = append(t.order, memberName)
	}

	rec.Scores = scores
	rec.RawData = raw
	if !rec.IsManualOverride {
		rec.Status = status
	}
	rec.UpdatedAt = time.Now()

	t.persist(*rec)
	return *rec
}

// UpdateTrainingCredits merges a manual training-credit entry into an
// existing record and recomputes. Unknown members are a no-op.
func (t *Table) UpdateTrainingCredits(memberName string, credits int) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[memberName]
	if !ok {
		return Record{}, false
	}

	rec.RawData.TrainingCredits = credits
	rec.Scores = scoring.Calculate(rec.RawData)
	if !rec.IsManualOverride {
		rec.Status = scoring.Classify(rec.Scores.Total)
	}
	rec.UpdatedAt = time.Now()

	t.persist(*rec)
	return *rec, true
}

// ManualOverride forces a tier and pins it.
func (t *Table) ManualOverride(memberName string, status scoring.Status) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[memberName]
	if !ok {
		return Record{}, false
	}

	rec.Status = status
	rec.IsManualOverride = true
	rec.UpdatedAt = time.Now()

	t.persist(*rec)
	return *rec, true
}

// ClearOverride unpins a record and recomputes its tier from the
// current score total.
func (t *Table) ClearOverride(memberName string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[memberName]
	if !ok {
		return Record{}, false
	}

	rec.Status = scoring.Classify(rec.Scores.Total)
	rec.IsManualOverride = false
	rec.UpdatedAt = time.Now()

	t.persist(*rec)
	return *rec, true
}

// Get returns the record for memberName.
func (t *Table) Get(memberName string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[memberName]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// ByStatus returns all records with the given tier, in table order.
func (t *Table) ByStatus(status scoring.Status) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Record
	for _, name := range t.order {
		if rec := t.records[name]; rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out
}

// Snapshot returns all records in table order.
func (t *Table) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.records[name])
	}
	return out
}

// Restore replaces the table contents, preserving the given order. Used
// when reloading persisted state at startup; it does not write back to
// the store.
func (t *Table) Restore(records []Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.order = t.order[:0]
	t.records = make(map[string]*Record, len(records))
	for i := range records {
		rec := records[i]
		if _, dup := t.records[rec.MemberName]; dup {
			continue
		}
		t.records[rec.MemberName] = &rec
		t.order = append(t.order, rec.MemberName)
	}
}

// ClearAll empties the table. Irreversible; backs the destructive admin
// action.
func (t *Table) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.order = nil
	t.records = make(map[string]*Record)

	if t.store != nil {
		if err := t.store.DeleteAllRatings(); err != nil {
			t.log.Warn("failed to clear persisted ratings", zap.Error(err))
		}
	}
}

func (t *Table) persist(rec Record) {
	if t.store == nil {
		return
	}
	if err := t.store.SaveRating(rec); err != nil {
		t.log.Warn("failed to persist rating",
			zap.String("member", rec.MemberName), zap.Error(err))
	}
}
