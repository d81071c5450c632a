package palms

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// nameLookbackRunes bounds how far the extractor looks backward from a
// numeric run to recover the member name. 50 covers the widest observed
// name cell plus the surrounding column whitespace.
const nameLookbackRunes = 50

// A member row after PDF extraction is 13 whitespace-separated numeric
// tokens; the 12th is the transaction value and may carry digit-grouping
// commas and a decimal point, the rest are plain non-negative integers.
var numericRunPattern = regexp.MustCompile(
	`(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+([\d,.]+)\s+(\d+)`)

// namePattern recovers the name immediately preceding a numeric run: a
// single CJK surname, 2+ spaces, then a given-name span of CJK/Latin/
// parentheses (half- or full-width) that may itself contain spaces. The
// leading alternation requires a digit or 2+ spaces before the surname,
// which keeps header-row label text from being absorbed into a name.
var namePattern = regexp.MustCompile(
	`(?:\d\s*|\s{2,})([\x{4e00}-\x{9fff}])\s{2,}([\x{4e00}-\x{9fff}a-zA-Z()（）\s]{1,20}?)\s*$`)

// fallbackLinePattern matches a whole row on a single line for PDF
// extractions that emit one table row per text line. Column alignment is
// intra-line there, so a single space between surname and given name is
// enough and no lookback is needed.
var fallbackLinePattern = regexp.MustCompile(
	`([\x{4e00}-\x{9fff}])\s+([\x{4e00}-\x{9fff}a-zA-Z()（）\s]{1,20}?)\s+` +
		`(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+([\d,.]+)\s+(\d+)`)

// nameDenylist rejects candidate names that are really header, footer or
// legend text which happened to precede a numeric-run-shaped sequence.
// Most entries match as substrings; the exact entries are standalone
// column labels and the brand token.
var (
	nameDenySubstrings = []string{
		"姓", "名字", "總數", "出席", "缺席", "遲到", "引薦", "會面",
		"交易", "價值", "教育", "單位", "報告", "PALMS",
	}
	nameDenyExact = []string{"來賓", "BNI"}
)

const (
	minNameRunes = 2
	maxNameRunes = 15
)

// Extractor rebuilds member records from report text. The zero value is
// not usable; construct with NewExtractor.
type Extractor struct {
	lookback int
}

// NewExtractor creates a member record extractor with the default
// name-recovery window.
func NewExtractor() *Extractor {
	return &Extractor{lookback: nameLookbackRunes}
}

// Extract recovers one record per member from the full report text.
//
// The primary pass scans left-to-right for 13-token numeric runs, then
// looks backward through a bounded window for the name that must precede
// a real member row. Runs with no recoverable name (page totals, header
// rows) are discarded. If the primary pass yields nothing the text is
// re-split into lines and each line is matched as a complete row, which
// handles the row-per-line extraction mode of the same upstream tool.
//
// Zero matches is a valid outcome, not an error: the caller receives an
// empty slice and decides how to surface it.
func (e *Extractor) Extract(text string) []Member {
	members := e.extractByNumericRuns(text)
	if len(members) == 0 {
		members = e.extractByLines(text)
	}
	return members
}

// extractByNumericRuns is the forward-scan, backward-name-recovery pass.
func (e *Extractor) extractByNumericRuns(text string) []Member {
	var members []Member
	seen := make(map[string]bool)

	runes := []rune(text)

	for _, loc := range numericRunPattern.FindAllStringSubmatchIndex(text, -1) {
		tokens := submatchTokens(text, loc, 13)

		lastName, firstName, ok := e.recoverName(runes, byteToRuneIndex(text, loc[0]))
		if !ok {
			// Not a member row; a totals or header run.
			continue
		}

		fullName := lastName + firstName
		if rejectName(fullName) {
			continue
		}
		// First occurrence wins; repeated headers across pages and
		// currency values re-triggering a match land here.
		if seen[fullName] {
			continue
		}
		seen[fullName] = true

		members = append(members, buildMember(lastName, firstName, tokens))
	}

	return members
}

// extractByLines is the fallback pass: one combined name+numbers match
// per text line.
func (e *Extractor) extractByLines(text string) []Member {
	var members []Member
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		m := fallbackLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		lastName := m[1]
		firstName := stripInnerSpace(m[2])
		fullName := lastName + firstName

		if rejectName(fullName) || seen[fullName] {
			continue
		}
		seen[fullName] = true

		members = append(members, buildMember(lastName, firstName, m[3:16]))
	}

	return members
}

// recoverName looks backward from the numeric run start through the
// lookback window and extracts the trailing surname + given-name span.
// The pattern is anchored at the window end so the name must abut the
// digits it belongs to.
func (e *Extractor) recoverName(runes []rune, runStart int) (lastName, firstName string, ok bool) {
	lookbackStart := runStart - e.lookback
	if lookbackStart < 0 {
		lookbackStart = 0
	}
	prefix := string(runes[lookbackStart:runStart])

	m := namePattern.FindStringSubmatch(prefix)
	if m == nil {
		return "", "", false
	}

	// The regex tolerates internal spaces in the given-name span (PDF
	// extraction can split one rendered token); they are stripped only
	// after the match.
	return m[1], stripInnerSpace(m[2]), true
}

// rejectName filters candidate names against the header/label denylist
// and the [2,15] rune length bounds.
func rejectName(fullName string) bool {
	for _, deny := range nameDenySubstrings {
		if strings.Contains(fullName, deny) {
			return true
		}
	}
	for _, deny := range nameDenyExact {
		if fullName == deny {
			return true
		}
	}

	n := len([]rune(fullName))
	return n < minNameRunes || n > maxNameRunes
}

// buildMember maps the 13 numeric tokens positionally onto the record
// fields. tokens[11] is the comma-grouped currency value; the rest are
// plain integers. Malformed tokens default to 0 without failing the
// record.
func buildMember(lastName, firstName string, tokens []string) Member {
	m := Member{
		LastName:                 lastName,
		FirstName:                firstName,
		FullName:                 lastName + firstName,
		Attendance:               safeInt(tokens[0]),
		Absence:                  safeInt(tokens[1]),
		Late:                     safeInt(tokens[2]),
		SickLeave:                safeInt(tokens[3]),
		Substitute:               safeInt(tokens[4]),
		InternalReferralGiven:    safeInt(tokens[5]),
		ExternalReferralGiven:    safeInt(tokens[6]),
		InternalReferralReceived: safeInt(tokens[7]),
		ExternalReferralReceived: safeInt(tokens[8]),
		Guests:                   safeInt(tokens[9]),
		OneToOne:                 safeInt(tokens[10]),
		TransactionValue:         roundCurrency(tokens[11]),
		EducationUnits:           safeInt(tokens[12]),
	}
	m.TotalReferrals = m.InternalReferralGiven + m.ExternalReferralGiven
	return m
}

// safeInt parses a non-negative integer token, defaulting to 0.
func safeInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// roundCurrency strips digit-grouping commas, parses the token as a
// decimal and rounds to the nearest whole unit. Unparseable values
// default to 0.
func roundCurrency(s string) int {
	cleaned := strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return int(math.Round(f))
}

// stripInnerSpace removes all whitespace inside a given-name span,
// including full-width spaces the ASCII-only regex classes do not cover.
func stripInnerSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// submatchTokens collects the first n capture groups of a SubmatchIndex
// result as strings.
func submatchTokens(text string, loc []int, n int) []string {
	tokens := make([]string, n)
	for i := 0; i < n; i++ {
		start, end := loc[2*(i+1)], loc[2*(i+1)+1]
		tokens[i] = text[start:end]
	}
	return tokens
}

// byteToRuneIndex converts a byte offset into text to a rune offset.
func byteToRuneIndex(text string, byteOff int) int {
	return len([]rune(text[:byteOff]))
}
