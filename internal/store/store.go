// Package store is the persistence collaborator: an optional Postgres
// backing for reports, ratings and the lottery log. The core keeps its
// own in-memory state; the store only makes it survive restarts. A nil
// *Store is valid and turns every operation into a no-op, which is the
// unconfigured local mode.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chapterops/palms-server/internal/lottery"
	"github.com/chapterops/palms-server/internal/palms"
	"github.com/chapterops/palms-server/internal/rating"
	"github.com/chapterops/palms-server/internal/scoring"
)

// Store wraps the gorm handle.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the schema. An empty DSN
// returns (nil, nil): persistence disabled.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, nil
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&ReportRow{}, &RatingRow{}, &LotteryRow{}, &SettingRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveReport inserts a report snapshot and, if current, moves the
// current pointer to it.
func (s *Store) SaveReport(r palms.Report, current bool) error {
	if s == nil {
		return nil
	}

	members, err := json.Marshal(r.Members)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}

	row := ReportRow{
		ID:          r.ID,
		Chapter:     r.Chapter,
		DateFrom:    r.DateFrom,
		DateTo:      r.DateTo,
		GeneratedAt: r.GeneratedAt,
		Members:     members,
		IsCurrent:   current,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if current {
			if err := tx.Model(&ReportRow{}).Where("is_current").Update("is_current", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(&row).Error
	})
}

// SetCurrentReport moves the current pointer.
func (s *Store) SetCurrentReport(id string) error {
	if s == nil {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ReportRow{}).Where("is_current").Update("is_current", false).Error; err != nil {
			return err
		}
		return tx.Model(&ReportRow{}).Where("id = ?", id).Update("is_current", true).Error
	})
}

// DeleteReport removes one report snapshot.
func (s *Store) DeleteReport(id string) error {
	if s == nil {
		return nil
	}
	return s.db.Delete(&ReportRow{}, "id = ?", id).Error
}

// LoadReports returns all persisted reports newest-first plus the id of
// the current one (empty if none).
func (s *Store) LoadReports() ([]palms.Report, string, error) {
	if s == nil {
		return nil, "", nil
	}

	var rows []ReportRow
	if err := s.db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, "", fmt.Errorf("failed to load reports: %w", err)
	}

	var reports []palms.Report
	currentID := ""
	for _, row := range rows {
		var members []palms.Member
		if len(row.Members) > 0 {
			if err := json.Unmarshal(row.Members, &members); err != nil {
				return nil, "", fmt.Errorf("failed to decode members for report %s: %w", row.ID, err)
			}
		}
		reports = append(reports, palms.Report{
			ID:          row.ID,
			Chapter:     row.Chapter,
			DateFrom:    row.DateFrom,
			DateTo:      row.DateTo,
			GeneratedAt: row.GeneratedAt,
			Members:     members,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
		if row.IsCurrent {
			currentID = row.ID
		}
	}

	return reports, currentID, nil
}

// SaveRating upserts one rating record.
func (s *Store) SaveRating(rec rating.Record) error {
	if s == nil {
		return nil
	}

	var position int64
	s.db.Model(&RatingRow{}).Count(&position)

	row := RatingRow{
		ID:         rec.ID,
		MemberName: rec.MemberName,
		Status:     string(rec.Status),

		ScoreAttendance:     rec.Scores.Attendance,
		ScoreOneToOne:       rec.Scores.OneToOne,
		ScoreTraining:       rec.Scores.Training,
		ScoreReferrals:      rec.Scores.Referrals,
		ScoreGuests:         rec.Scores.Guests,
		ScoreReferralAmount: rec.Scores.ReferralAmount,
		ScoreTotal:          rec.Scores.Total,

		RawAbsenceCount:        rec.RawData.AbsenceCount,
		RawOneToOnePerWeek:     rec.RawData.OneToOnePerWeek,
		RawTrainingCredits:     rec.RawData.TrainingCredits,
		RawReferralsPerWeek:    rec.RawData.ReferralsPerWeek,
		RawGuestsPer4Weeks:     rec.RawData.GuestsPer4Weeks,
		RawReferralAmountTotal: rec.RawData.ReferralAmountTotal,

		IsManualOverride: rec.IsManualOverride,
		Position:         int(position),
		UpdatedAt:        rec.UpdatedAt,
	}

	// Keep the original position on update.
	var existing RatingRow
	if err := s.db.Where("member_name = ?", rec.MemberName).First(&existing).Error; err == nil {
		row.Position = existing.Position
		row.ID = existing.ID
	}

	return s.db.Save(&row).Error
}

// DeleteAllRatings drops the whole rating table contents.
func (s *Store) DeleteAllRatings() error {
	if s == nil {
		return nil
	}
	return s.db.Where("1 = 1").Delete(&RatingRow{}).Error
}

// LoadRatings returns all rating records in table order.
func (s *Store) LoadRatings() ([]rating.Record, error) {
	if s == nil {
		return nil, nil
	}

	var rows []RatingRow
	if err := s.db.Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}

	records := make([]rating.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, rating.Record{
			ID:         row.ID,
			MemberName: row.MemberName,
			Status:     scoring.Status(row.Status),
			Scores: scoring.Scores{
				Attendance:     row.ScoreAttendance,
				OneToOne:       row.ScoreOneToOne,
				Training:       row.ScoreTraining,
				Referrals:      row.ScoreReferrals,
				Guests:         row.ScoreGuests,
				ReferralAmount: row.ScoreReferralAmount,
				Total:          row.ScoreTotal,
			},
			RawData: scoring.RawData{
				AbsenceCount:        row.RawAbsenceCount,
				OneToOnePerWeek:     row.RawOneToOnePerWeek,
				TrainingCredits:     row.RawTrainingCredits,
				ReferralsPerWeek:    row.RawReferralsPerWeek,
				GuestsPer4Weeks:     row.RawGuestsPer4Weeks,
				ReferralAmountTotal: row.RawReferralAmountTotal,
			},
			IsManualOverride: row.IsManualOverride,
			UpdatedAt:        row.UpdatedAt,
		})
	}

	return records, nil
}

// SaveLotteryRecord appends one draw to the persisted log.
func (s *Store) SaveLotteryRecord(rec lottery.Record) error {
	if s == nil {
		return nil
	}
	row := LotteryRow{
		ID:        rec.ID,
		Winner:    rec.Winner,
		Timestamp: rec.Timestamp,
		Round:     rec.Round,
		SessionID: rec.SessionID,
	}
	return s.db.Create(&row).Error
}

// DeleteAllLotteryRecords drops the persisted draw log.
func (s *Store) DeleteAllLotteryRecords() error {
	if s == nil {
		return nil
	}
	return s.db.Where("1 = 1").Delete(&LotteryRow{}).Error
}

// LoadLotteryRecords returns the full draw log oldest-first.
func (s *Store) LoadLotteryRecords() ([]lottery.Record, error) {
	if s == nil {
		return nil, nil
	}

	var rows []LotteryRow
	if err := s.db.Order("timestamp ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load lottery records: %w", err)
	}

	records := make([]lottery.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, lottery.Record{
			ID:        row.ID,
			Winner:    row.Winner,
			Timestamp: row.Timestamp,
			Round:     row.Round,
			SessionID: row.SessionID,
		})
	}
	return records, nil
}

const settingExcludeWinners = "lottery_exclude_winners"

// SaveExcludePolicy persists the lottery exclusion policy toggle.
func (s *Store) SaveExcludePolicy(exclude bool) error {
	if s == nil {
		return nil
	}
	row := SettingRow{Key: settingExcludeWinners, Value: strconv.FormatBool(exclude)}
	return s.db.Save(&row).Error
}

// LoadExcludePolicy returns the persisted exclusion policy. ok reports
// whether one was ever stored.
func (s *Store) LoadExcludePolicy() (exclude, ok bool, err error) {
	if s == nil {
		return false, false, nil
	}

	var row SettingRow
	if err := s.db.First(&row, "key = ?", settingExcludeWinners).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to load setting: %w", err)
	}

	v, perr := strconv.ParseBool(row.Value)
	if perr != nil {
		return false, false, nil
	}
	return v, true, nil
}

// ClearAll empties every table. Backs the destructive admin action.
func (s *Store) ClearAll() error {
	if s == nil {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&ReportRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&RatingRow{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&LotteryRow{}).Error
	})
}
