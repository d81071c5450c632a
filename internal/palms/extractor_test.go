package palms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// columnText joins fragments the way the row-based PDF text extraction
// does: two spaces between cells, newlines between rows.
func columnText(rows ...string) string {
	return strings.Join(rows, "\n")
}

func TestExtract_SingleRowVerbatim(t *testing.T) {
	// One member row exactly as the upstream tool emits it.
	text := "洪   偵哲   25   0   0   0   1   33   22   6   21   1   29   516830.00   0"

	members := NewExtractor().Extract(text)
	require.Len(t, members, 1)

	m := members[0]
	assert.Equal(t, "洪", m.LastName)
	assert.Equal(t, "偵哲", m.FirstName)
	assert.Equal(t, "洪偵哲", m.FullName)
	assert.Equal(t, 25, m.Attendance)
	assert.Equal(t, 0, m.Absence)
	assert.Equal(t, 0, m.Late)
	assert.Equal(t, 0, m.SickLeave)
	assert.Equal(t, 1, m.Substitute)
	assert.Equal(t, 33, m.InternalReferralGiven)
	assert.Equal(t, 22, m.ExternalReferralGiven)
	assert.Equal(t, 6, m.InternalReferralReceived)
	assert.Equal(t, 21, m.ExternalReferralReceived)
	assert.Equal(t, 1, m.Guests)
	assert.Equal(t, 29, m.OneToOne)
	assert.Equal(t, 516830, m.TransactionValue)
	assert.Equal(t, 0, m.EducationUnits)
	assert.Equal(t, 55, m.TotalReferrals)
}

func TestExtract_MultipleMembersColumnMode(t *testing.T) {
	text := columnText(
		"分會: 威鋒 - Wei Feng",
		"姓  名字  出席  缺席  遲到",
		"  洪   偵哲   25   0   0   0   1   33   22   6   21   1   29   516,830.00   0"+
			"   王   小明   20   2   1   0   0   10   5   3   2   2   13   120000   4",
	)

	members := NewExtractor().Extract(text)
	require.Len(t, members, 2)

	assert.Equal(t, "洪偵哲", members[0].FullName)
	assert.Equal(t, 516830, members[0].TransactionValue)

	assert.Equal(t, "王小明", members[1].FullName)
	assert.Equal(t, 20, members[1].Attendance)
	assert.Equal(t, 2, members[1].Absence)
	assert.Equal(t, 15, members[1].TotalReferrals)
	assert.Equal(t, 120000, members[1].TransactionValue)
}

func TestExtract_Idempotent(t *testing.T) {
	text := columnText(
		"  洪   偵哲   25   0   0   0   1   33   22   6   21   1   29   516830.00   0",
		"  王   小明   20   2   1   0   0   10   5   3   2   2   13   120000.50   4",
	)

	e := NewExtractor()
	first := e.Extract(text)
	second := e.Extract(text)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestExtract_DuplicateNameFirstWins(t *testing.T) {
	// The same member appearing on two pages keeps the first row.
	text := columnText(
		"  洪   偵哲   25   0   0   0   1   33   22   6   21   1   29   516830.00   0",
		"  洪   偵哲   10   9   9   9   9   9   9   9   9   9   9   1.00   9",
	)

	members := NewExtractor().Extract(text)
	require.Len(t, members, 1)
	assert.Equal(t, 25, members[0].Attendance)
	assert.Equal(t, 516830, members[0].TransactionValue)
}

func TestExtract_DenylistRejectsLabelText(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "column label pair",
			text: "  總   數   25   0   0   0   1   33   22   6   21   1   29   516830.00   0",
		},
		{
			name: "guest label",
			text: "  來   賓   25   0   0   0   1   33   22   6   21   1   29   516830.00   0",
		},
		{
			name: "report label",
			text: "  報   告   25   0   0   0   1   33   22   6   21   1   29   516830.00   0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := NewExtractor().Extract(tt.text)
			assert.Empty(t, members)
		})
	}
}

func TestExtract_NameLengthBounds(t *testing.T) {
	// 15 given-name runes push the full name past the accepted range.
	longGiven := strings.Repeat("偵", 15)
	text := "  洪   " + longGiven + "   25   0   0   0   1   33   22   6   21   1   29   516830.00   0"

	members := NewExtractor().Extract(text)
	assert.Empty(t, members)
}

func TestExtract_ParentheticalNickname(t *testing.T) {
	text := columnText(
		"  陳   忠維(阿MO)   24   1   0   0   0   8   4   2   3   0   11   95000.00   2",
	)

	members := NewExtractor().Extract(text)
	require.Len(t, members, 1)
	assert.Equal(t, "忠維(阿MO)", members[0].FirstName)
	assert.Equal(t, "陳忠維(阿MO)", members[0].FullName)
}

func TestExtract_GivenNameInternalSpaceStripped(t *testing.T) {
	// PDF extraction sometimes splits one rendered name token.
	text := "  陳   忠 維   24   1   0   0   0   8   4   2   3   0   11   95000.00   2"

	members := NewExtractor().Extract(text)
	require.Len(t, members, 1)
	assert.Equal(t, "忠維", members[0].FirstName)
	assert.Equal(t, "陳忠維", members[0].FullName)
}

func TestExtract_FallbackLineMode(t *testing.T) {
	// Row-per-line extraction with single-space columns never matches the
	// lookback pattern; the per-line fallback has to recover it.
	text := columnText(
		"洪 偵哲 25 0 0 0 1 33 22 6 21 1 29 516830.00 0",
		"王 小明 20 2 1 0 0 10 5 3 2 2 13 120000.50 4",
	)

	members := NewExtractor().Extract(text)
	require.Len(t, members, 2)
	assert.Equal(t, "洪偵哲", members[0].FullName)
	assert.Equal(t, "王小明", members[1].FullName)
	assert.Equal(t, 120001, members[1].TransactionValue)
}

func TestExtract_NoMembers(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty text", text: ""},
		{name: "header only", text: "分會: 威鋒 - Wei Feng\n從: 2025/7/1 至: 2025/12/31"},
		{name: "numbers with no preceding name", text: "1 2 3 4 5 6 7 8 9 10 11 12 13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := NewExtractor().Extract(tt.text)
			assert.Empty(t, members)
		})
	}
}

func TestRoundCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"516830.00", 516830},
		{"516,830.00", 516830},
		{"1,234.56", 1235},
		{"1234.4", 1234},
		{"0", 0},
		{"not-a-number", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, roundCurrency(tt.in))
		})
	}
}

func TestSafeInt(t *testing.T) {
	assert.Equal(t, 25, safeInt("25"))
	assert.Equal(t, 0, safeInt("x"))
	assert.Equal(t, 0, safeInt("-3"))
}
