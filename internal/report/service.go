// Package report orchestrates the ingestion pipeline: PDF file to text
// extraction to header/member parsing, feeding the report history, the
// rating table and the lottery candidates.
package report

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chapterops/palms-server/internal/lottery"
	"github.com/chapterops/palms-server/internal/palms"
	"github.com/chapterops/palms-server/internal/pdf"
	"github.com/chapterops/palms-server/internal/rating"
	"github.com/chapterops/palms-server/internal/scoring"
	"github.com/chapterops/palms-server/internal/store"
)

// ErrNotFound is returned for operations on an unknown report id.
var ErrNotFound = errors.New("report not found")

// Service owns the report history and wires extraction results into the
// rating table and the lottery engine. History mutations are serialized
// under one mutex.
type Service struct {
	reader    *pdf.Reader
	validator *pdf.Validator

	mu       sync.Mutex
	reports  []palms.Report // newest first
	current  string         // id of the current report, empty if none
	chapter  string         // last seen chapter name, defaults from config
	fallback string

	windowWeeks int
	ratings     *rating.Table
	lotto       *lottery.Engine
	store       *store.Store
	log         *zap.Logger
}

// NewService creates the report service. st may be nil (no persistence).
func NewService(maxFileSize int64, fallbackChapter string, windowWeeks int,
	ratings *rating.Table, lotto *lottery.Engine, st *store.Store, log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		reader:      pdf.NewReader(maxFileSize),
		validator:   pdf.NewValidator(maxFileSize),
		chapter:     fallbackChapter,
		fallback:    fallbackChapter,
		windowWeeks: windowWeeks,
		ratings:     ratings,
		lotto:       lotto,
		store:       st,
		log:         log,
	}
}

// LoadFromStore restores persisted state at startup. Safe to call with
// no store configured.
func (s *Service) LoadFromStore() error {
	reports, currentID, err := s.store.LoadReports()
	if err != nil {
		return err
	}
	ratings, err := s.store.LoadRatings()
	if err != nil {
		return err
	}
	draws, err := s.store.LoadLotteryRecords()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.reports = reports
	s.current = currentID
	s.mu.Unlock()

	s.ratings.Restore(ratings)
	s.lotto.Restore(draws)
	if exclude, ok, err := s.store.LoadExcludePolicy(); err != nil {
		return err
	} else if ok {
		s.lotto.SetExcludeWinners(exclude)
	}
	s.refreshCandidates()

	if len(reports) > 0 || len(ratings) > 0 {
		s.log.Info("restored persisted state",
			zap.Int("reports", len(reports)),
			zap.Int("ratings", len(ratings)),
			zap.Int("draws", len(draws)))
	}
	return nil
}

// ParseFile validates the PDF, extracts its text and parses header and
// member rows. The returned result is not stored; zero extracted
// members is a valid outcome.
func (s *Service) ParseFile(path string) (palms.ParseResult, error) {
	res, err := s.validator.ValidateFile(path)
	if err != nil {
		return palms.ParseResult{}, err
	}
	if !res.Valid {
		return palms.ParseResult{}, fmt.Errorf("parse failed: %s", res.Message)
	}

	read, err := s.reader.ReadFile(path)
	if err != nil {
		return palms.ParseResult{}, fmt.Errorf("parse failed: %w", err)
	}

	parsed := palms.Parse(read.Text, s.fallback)
	s.log.Info("parsed report file",
		zap.String("path", path),
		zap.Int("pages", read.Pages),
		zap.String("chapter", parsed.Header.Chapter),
		zap.Int("members", len(parsed.Members)))
	return parsed, nil
}

// Ingest parses a weekly report PDF, stores it at the head of the
// history, designates it current and refreshes the lottery candidates.
// The previous current report is superseded, never mutated.
func (s *Service) Ingest(path string) (palms.Report, error) {
	parsed, err := s.ParseFile(path)
	if err != nil {
		return palms.Report{}, err
	}

	now := time.Now()
	rep := palms.Report{
		ID:          uuid.NewString(),
		Chapter:     parsed.Header.Chapter,
		DateFrom:    parsed.Header.DateFrom,
		DateTo:      parsed.Header.DateTo,
		GeneratedAt: parsed.Header.GeneratedAt,
		Members:     parsed.Members,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.reports = append([]palms.Report{rep}, s.reports...)
	s.current = rep.ID
	s.chapter = rep.Chapter
	s.mu.Unlock()

	if err := s.store.SaveReport(rep, true); err != nil {
		s.log.Warn("failed to persist report", zap.String("id", rep.ID), zap.Error(err))
	}

	s.refreshCandidates()
	return rep, nil
}

// IngestHalfYear parses a half-year report PDF and upserts every member
// into the rating table with normalized raw metrics. trainingCredits
// supplies per-member manual credit entries (missing names default to 0).
// The half-year report does not join the weekly history.
func (s *Service) IngestHalfYear(path string, trainingCredits map[string]int) (palms.ParseResult, []rating.Record, error) {
	parsed, err := s.ParseFile(path)
	if err != nil {
		return palms.ParseResult{}, nil, err
	}

	s.mu.Lock()
	s.chapter = parsed.Header.Chapter
	s.mu.Unlock()

	records := make([]rating.Record, 0, len(parsed.Members))
	for _, m := range parsed.Members {
		raw := scoring.Normalize(m, trainingCredits[m.FullName], s.windowWeeks)
		records = append(records, s.ratings.Upsert(m.FullName, raw))
	}

	s.log.Info("half-year ingestion complete",
		zap.String("chapter", parsed.Header.Chapter),
		zap.Int("members", len(records)))
	return parsed, records, nil
}

// Current returns the current report.
func (s *Service) Current() (palms.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(s.current)
}

// History returns all reports newest-first.
func (s *Service) History() []palms.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]palms.Report(nil), s.reports...)
}

// Get returns one report by id.
func (s *Service) Get(id string) (palms.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

// SetCurrent moves the current pointer to an existing report and
// refreshes the lottery candidates from it.
func (s *Service) SetCurrent(id string) error {
	s.mu.Lock()
	if _, ok := s.findLocked(id); !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.current = id
	s.mu.Unlock()

	if err := s.store.SetCurrentReport(id); err != nil {
		s.log.Warn("failed to persist current pointer", zap.String("id", id), zap.Error(err))
	}

	s.refreshCandidates()
	return nil
}

// Delete removes a report from history. Deleting the current report
// leaves no current until the next upload or SetCurrent.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	idx := -1
	for i, r := range s.reports {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.reports = append(s.reports[:idx], s.reports[idx+1:]...)
	wasCurrent := s.current == id
	if wasCurrent {
		s.current = ""
	}
	s.mu.Unlock()

	if err := s.store.DeleteReport(id); err != nil {
		s.log.Warn("failed to delete persisted report", zap.String("id", id), zap.Error(err))
	}

	if wasCurrent {
		s.refreshCandidates()
	}
	return nil
}

// Summary aggregates totals over the current report.
func (s *Service) Summary() (palms.Summary, bool) {
	rep, ok := s.Current()
	if !ok {
		return palms.Summary{}, false
	}
	return rep.Summarize(), true
}

// Chapter returns the most recently seen chapter name.
func (s *Service) Chapter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapter
}

// ClearAll wipes reports, ratings and the lottery log. Irreversible.
func (s *Service) ClearAll() error {
	s.mu.Lock()
	s.reports = nil
	s.current = ""
	s.chapter = s.fallback
	s.mu.Unlock()

	s.ratings.ClearAll()
	s.lotto.ClearRecords()
	s.lotto.SetCandidates(nil)

	if err := s.store.ClearAll(); err != nil {
		return fmt.Errorf("failed to clear persisted state: %w", err)
	}
	s.log.Info("all stored data cleared")
	return nil
}

// refreshCandidates rebuilds the lottery pool from the current report:
// one candidate per member, weighted by given referrals. With no
// current report the pool is empty.
func (s *Service) refreshCandidates() {
	rep, ok := s.Current()
	if !ok {
		s.lotto.SetCandidates(nil)
		return
	}

	candidates := make([]lottery.Candidate, 0, len(rep.Members))
	for _, m := range rep.Members {
		candidates = append(candidates, lottery.Candidate{
			Name:    m.FullName,
			Chances: m.TotalReferrals,
		})
	}
	s.lotto.SetCandidates(candidates)
}

func (s *Service) findLocked(id string) (palms.Report, bool) {
	if id == "" {
		return palms.Report{}, false
	}
	for _, r := range s.reports {
		if r.ID == id {
			return r, true
		}
	}
	return palms.Report{}, false
}
