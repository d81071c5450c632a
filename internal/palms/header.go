package palms

import "regexp"

// Header anchors. Labels may be followed by a half- or full-width colon;
// label and value are coupled by proximity, not position, so the fields
// can be matched in any order.
var (
	// Chapter lines look like "分會: 威鋒 - Wei Feng"; only the token
	// before the dash is the chapter name.
	chapterPattern = regexp.MustCompile(`分會\s*[:：]?\s*([^\s-]+)\s*-`)

	// Date values are YYYY/M/D with 1-2 digit month and day.
	dateFromPattern = regexp.MustCompile(`從\s*[:：]?\s*(\d{4}/\d{1,2}/\d{1,2})`)
	dateToPattern   = regexp.MustCompile(`至\s*[:：]?\s*(\d{4}/\d{1,2}/\d{1,2})`)

	// Generation timestamp, e.g. "2026年1月15日 下午3:45".
	generatedPattern = regexp.MustCompile(`(\d{4}年\d{1,2}月\d{1,2}日\s*[上下]午\d{1,2}:\d{2})`)
)

// ParseHeader extracts the chapter name, reporting date range and
// generation timestamp from the full report text. Absence of an anchor
// is a valid state: the chapter falls back to fallbackChapter and the
// remaining fields default to empty strings. It never returns an error.
func ParseHeader(text, fallbackChapter string) Header {
	h := Header{Chapter: fallbackChapter}

	if m := chapterPattern.FindStringSubmatch(text); m != nil {
		h.Chapter = m[1]
	}
	if m := dateFromPattern.FindStringSubmatch(text); m != nil {
		h.DateFrom = m[1]
	}
	if m := dateToPattern.FindStringSubmatch(text); m != nil {
		h.DateTo = m[1]
	}
	if m := generatedPattern.FindStringSubmatch(text); m != nil {
		h.GeneratedAt = m[1]
	}

	return h
}
