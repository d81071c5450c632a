package palms

// ParseResult bundles the header fields and member records recovered
// from one report text.
type ParseResult struct {
	Header  Header
	Members []Member
}

// Parse runs header parsing and member extraction over the full report
// text. Both stages are lenient: missing header anchors default, and an
// unrecognizable body yields an empty member slice. Parse never fails;
// only the upstream PDF reader surfaces errors.
func Parse(text, fallbackChapter string) ParseResult {
	return ParseResult{
		Header:  ParseHeader(text, fallbackChapter),
		Members: NewExtractor().Extract(text),
	}
}
