// Package pdf is the text extraction adapter: it turns a PALMS report
// PDF into one reading-order text string. This is the only layer whose
// failures surface to the caller as errors; the heuristic stages
// downstream return empty values instead.
package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Reader extracts reading-order text from report PDFs.
type Reader struct {
	maxFileSize int64
	maxTextSize int
}

// NewReader creates a PDF reader with the specified size constraints.
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		maxFileSize: maxFileSize,
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
	}
}

// ReadResult is the extracted document text plus basic file facts.
type ReadResult struct {
	Text  string `json:"text"`
	Path  string `json:"path"`
	Pages int    `json:"pages"`
	Size  int64  `json:"size"`
}

// ReadFile extracts the text of every page in reading order and
// concatenates them. Pages are joined by a newline; within a page, rows
// are emitted top to bottom with their words separated by a two-space
// gap so the downstream name recovery still sees the column boundaries
// the table grid used to provide.
func (r *Reader) ReadFile(path string) (*ReadResult, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if err := r.validatePDFFile(path, fileInfo); err != nil {
		return nil, err
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	text, err := r.extractText(pdfReader)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	return &ReadResult{
		Text:  text,
		Path:  path,
		Pages: pdfReader.NumPage(),
		Size:  fileInfo.Size(),
	}, nil
}

// validatePDFFile performs basic validation on a PDF file
func (r *Reader) validatePDFFile(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}

	if fileInfo.Size() > r.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), r.maxFileSize)
	}

	return nil
}

// extractText accumulates page texts sequentially. Reading order must
// be preserved: member name recovery depends on glyph order across the
// whole document. A page that fails to yield text is skipped rather
// than failing the document.
func (r *Reader) extractText(pdfReader *pdf.Reader) (string, error) {
	var builder strings.Builder
	totalLength := 0

	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageText := r.pageText(page)
		if pageText == "" {
			continue
		}

		if totalLength+len(pageText) > r.maxTextSize {
			remaining := r.maxTextSize - totalLength
			if remaining > 0 {
				builder.WriteString(pageText[:remaining])
			}
			break
		}

		builder.WriteString(pageText)
		builder.WriteString("\n")
		totalLength += len(pageText) + 1
	}

	text := builder.String()
	if text == "" {
		return "", fmt.Errorf("no text content could be extracted from PDF")
	}

	return text, nil
}

// pageText renders one page as rows of words joined by two spaces.
func (r *Reader) pageText(page pdf.Page) (text string) {
	defer func() {
		// ledongthuc panics on some malformed content streams; treat
		// the page as empty in that case.
		if recover() != nil {
			text = ""
		}
	}()

	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}

	var lines []string
	for _, row := range rows {
		var words []string
		for _, word := range row.Content {
			if s := strings.TrimSpace(word.S); s != "" {
				words = append(words, s)
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, "  "))
		}
	}

	return strings.Join(lines, "\n")
}
