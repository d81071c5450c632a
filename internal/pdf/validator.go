package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Validator checks that an uploaded file is a well-formed PDF before
// extraction is attempted. A failed validation is the fatal,
// caller-surfaced error class; partial recovery is not attempted.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a PDF validator with the specified constraints.
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// ValidateResult reports the outcome of a validation pass.
type ValidateResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Message string `json:"message,omitempty"`
}

// ValidateFile performs validation on a PDF file. Validation failure is
// reported in the result, not as a processing error.
func (v *Validator) ValidateFile(path string) (*ValidateResult, error) {
	result := &ValidateResult{Path: path}

	if err := v.validatePDFFile(path); err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // validation errors belong in the result
	}

	result.Valid = true
	return result, nil
}

// IsValidPDF performs a quick validation check on a file.
func (v *Validator) IsValidPDF(path string) bool {
	return v.validatePDFFile(path) == nil
}

func (v *Validator) validatePDFFile(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}

	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}

	if fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	// Structural pass. Relaxed mode: PALMS exports from the vendor tool
	// are not always strictly conformant but still extract fine.
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return fmt.Errorf("not a well-formed PDF: %w", err)
	}

	// Confirm the text layer is reachable.
	f, _, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open PDF for text extraction: %w", err)
	}
	return f.Close()
}
