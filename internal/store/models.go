package store

import "time"

// ReportRow persists one extracted report snapshot. The member rows are
// kept as a JSON payload: a report is immutable once created, so there
// is nothing to query inside it.
type ReportRow struct {
	ID          string `gorm:"primaryKey"`
	Chapter     string `gorm:"not null"`
	DateFrom    string
	DateTo      string
	GeneratedAt string
	Members     []byte `gorm:"type:jsonb"`
	IsCurrent   bool   `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ReportRow) TableName() string { return "weekly_reports" }

// RatingRow persists one member's traffic-light record with the scores
// and raw metrics flattened into columns.
type RatingRow struct {
	ID         string `gorm:"primaryKey"`
	MemberName string `gorm:"uniqueIndex;not null"`
	Status     string `gorm:"not null"`

	ScoreAttendance     int
	ScoreOneToOne       int
	ScoreTraining       int
	ScoreReferrals      int
	ScoreGuests         int
	ScoreReferralAmount int
	ScoreTotal          int

	RawAbsenceCount        int
	RawOneToOnePerWeek     float64
	RawTrainingCredits     int
	RawReferralsPerWeek    float64
	RawGuestsPer4Weeks     float64
	RawReferralAmountTotal int

	IsManualOverride bool
	Position         int `gorm:"index"` // table order
	UpdatedAt        time.Time
}

func (RatingRow) TableName() string { return "traffic_light_statuses" }

// LotteryRow persists one draw record.
type LotteryRow struct {
	ID        string `gorm:"primaryKey"`
	Winner    string `gorm:"not null"`
	Timestamp time.Time
	Round     int
	SessionID string `gorm:"index"`
}

func (LotteryRow) TableName() string { return "lottery_records" }

// SettingRow persists one key/value setting, currently only the lottery
// exclusion policy.
type SettingRow struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func (SettingRow) TableName() string { return "settings" }
