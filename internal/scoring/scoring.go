// Package scoring maps six raw behavioral metrics onto bounded
// sub-scores and classifies the total into a traffic-light tier.
package scoring

import "github.com/chapterops/palms-server/internal/palms"

// Status is a traffic-light tier.
type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
	StatusGrey   Status = "grey"
)

// Classification thresholds, inclusive lower bounds evaluated in order.
// The source rule table leaves 46-49 and 66-69 unmapped in its prose
// (grey is described as "25 and below" while the function cuts at 30);
// the function thresholds are authoritative, so the gaps stay.
const (
	greenThreshold  = 70
	yellowThreshold = 50
	redThreshold    = 30
)

// ValidStatus reports whether s is one of the four tiers.
func ValidStatus(s Status) bool {
	switch s {
	case StatusGreen, StatusYellow, StatusRed, StatusGrey:
		return true
	}
	return false
}

// RawData holds the six input metrics for one member. The per-week and
// per-4-week rates are normalized by the caller (see Normalize); the
// scorer itself is windowless.
type RawData struct {
	AbsenceCount        int     `json:"absence_count"`
	OneToOnePerWeek     float64 `json:"one_to_one_per_week"`
	TrainingCredits     int     `json:"training_credits"`
	ReferralsPerWeek    float64 `json:"referrals_per_week"`
	GuestsPer4Weeks     float64 `json:"guests_per_4_weeks"`
	ReferralAmountTotal int     `json:"referral_amount_total"`
}

// Scores holds the six sub-scores and their total (0-100).
type Scores struct {
	Attendance     int `json:"attendance"`
	OneToOne       int `json:"one_to_one"`
	Training       int `json:"training"`
	Referrals      int `json:"referrals"`
	Guests         int `json:"guests"`
	ReferralAmount int `json:"referral_amount"`
	Total          int `json:"total"`
}

// Calculate computes the six sub-scores from the raw metrics. Each
// sub-score is an independent non-decreasing step function of its
// metric; the total is their sum.
func Calculate(raw RawData) Scores {
	s := Scores{
		Attendance:     attendanceScore(raw.AbsenceCount),
		OneToOne:       oneToOneScore(raw.OneToOnePerWeek),
		Training:       trainingScore(raw.TrainingCredits),
		Referrals:      referralsScore(raw.ReferralsPerWeek),
		Guests:         guestsScore(raw.GuestsPer4Weeks),
		ReferralAmount: referralAmountScore(raw.ReferralAmountTotal),
	}
	s.Total = s.Attendance + s.OneToOne + s.Training + s.Referrals + s.Guests + s.ReferralAmount
	return s
}

// Classify maps a total score to its tier. First matching threshold
// wins.
func Classify(total int) Status {
	switch {
	case total >= greenThreshold:
		return StatusGreen
	case total >= yellowThreshold:
		return StatusYellow
	case total >= redThreshold:
		return StatusRed
	default:
		return StatusGrey
	}
}

// Normalize derives the scorer inputs from one extracted member record.
// Weekly rates divide by the half-year window; the guest rate is
// expressed per 4 weeks. Training credits come from a separate manual
// entry, not the report.
func Normalize(m palms.Member, trainingCredits, windowWeeks int) RawData {
	weeks := float64(windowWeeks)
	return RawData{
		AbsenceCount:        m.Absence,
		OneToOnePerWeek:     float64(m.OneToOne) / weeks,
		TrainingCredits:     trainingCredits,
		ReferralsPerWeek:    float64(m.TotalReferrals) / weeks,
		GuestsPer4Weeks:     float64(m.Guests) / weeks * 4,
		ReferralAmountTotal: m.TransactionValue,
	}
}

// attendanceScore: 0-20 by absence count.
func attendanceScore(absences int) int {
	switch {
	case absences >= 3:
		return 0
	case absences == 2:
		return 10
	case absences == 1:
		return 15
	default:
		return 20
	}
}

// oneToOneScore: 0-15 by weekly one-to-one rate.
func oneToOneScore(perWeek float64) int {
	switch {
	case perWeek < 0.5:
		return 0
	case perWeek < 1:
		return 5
	case perWeek < 2:
		return 10
	default:
		return 15
	}
}

// trainingScore: 0-15 by accumulated credits.
func trainingScore(credits int) int {
	switch {
	case credits < 2:
		return 0
	case credits < 4:
		return 5
	case credits < 6:
		return 10
	default:
		return 15
	}
}

// referralsScore: 0-20 by weekly referral rate.
func referralsScore(perWeek float64) int {
	switch {
	case perWeek < 0.75:
		return 0
	case perWeek < 1:
		return 5
	case perWeek < 1.2:
		return 10
	case perWeek < 1.5:
		return 15
	default:
		return 20
	}
}

// guestsScore: 0-15 by guests brought per 4 weeks.
func guestsScore(per4Weeks float64) int {
	switch {
	case per4Weeks < 1:
		return 0
	case per4Weeks < 2:
		return 10
	default:
		return 15
	}
}

// referralAmountScore: 0-15 by total referred transaction value.
func referralAmountScore(total int) int {
	switch {
	case total < 400000:
		return 0
	case total < 800000:
		return 5
	case total < 2000000:
		return 10
	default:
		return 15
	}
}
