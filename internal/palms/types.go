// Package palms recovers structured chapter performance records from the
// reading-order text of a PALMS attendance/referral report. PDF text
// extraction loses the table grid, so a member row survives only as a
// whitespace-joined run of name glyphs followed by 13 numeric fields;
// this package rebuilds the rows from that stream.
package palms

import "time"

// Member is one row of chapter performance data for one person in one
// reporting window. Created once per extraction pass and immutable
// afterward.
type Member struct {
	LastName string `json:"last_name"`
	// FirstName has internal whitespace stripped; a parenthetical Latin
	// nickname stays attached, e.g. 忠維(阿MO).
	FirstName string `json:"first_name"`
	FullName  string `json:"full_name"`

	Attendance               int `json:"attendance"`
	Absence                  int `json:"absence"`
	Late                     int `json:"late"`
	SickLeave                int `json:"sick_leave"`
	Substitute               int `json:"substitute"`
	InternalReferralGiven    int `json:"internal_referral_given"`
	ExternalReferralGiven    int `json:"external_referral_given"`
	InternalReferralReceived int `json:"internal_referral_received"`
	ExternalReferralReceived int `json:"external_referral_received"`
	Guests                   int `json:"guests"`
	OneToOne                 int `json:"one_to_one"`
	// TransactionValue is rounded to a whole currency unit from a
	// possibly comma-grouped decimal string.
	TransactionValue int `json:"transaction_value"`
	EducationUnits   int `json:"education_units"`

	// TotalReferrals = InternalReferralGiven + ExternalReferralGiven,
	// derived at extraction time.
	TotalReferrals int `json:"total_referrals"`
}

// Header carries the report header fields. All values are raw strings in
// the source locale format; a missing anchor leaves its field at the
// default rather than raising an error.
type Header struct {
	Chapter     string `json:"chapter"`
	DateFrom    string `json:"date_from"`
	DateTo      string `json:"date_to"`
	GeneratedAt string `json:"generated_at"`
}

// Report is an immutable snapshot produced by one extraction call. A new
// upload supersedes the current report but never mutates it.
type Report struct {
	ID          string    `json:"id"`
	Chapter     string    `json:"chapter"`
	DateFrom    string    `json:"date_from"`
	DateTo      string    `json:"date_to"`
	GeneratedAt string    `json:"generated_at"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary aggregates the headline totals of one report.
type Summary struct {
	TotalInternalReferrals int `json:"total_internal_referrals"`
	TotalExternalReferrals int `json:"total_external_referrals"`
	TotalReferrals         int `json:"total_referrals"`
	TotalOneToOne          int `json:"total_one_to_one"`
	TotalGuests            int `json:"total_guests"`
	TotalTransactionValue  int `json:"total_transaction_value"`
}

// Summarize computes the report totals over all members.
func (r *Report) Summarize() Summary {
	var s Summary
	for _, m := range r.Members {
		s.TotalInternalReferrals += m.InternalReferralGiven
		s.TotalExternalReferrals += m.ExternalReferralGiven
		s.TotalReferrals += m.TotalReferrals
		s.TotalOneToOne += m.OneToOne
		s.TotalGuests += m.Guests
		s.TotalTransactionValue += m.TransactionValue
	}
	return s
}
