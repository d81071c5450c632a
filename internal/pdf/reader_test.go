package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewReader(t *testing.T) {
	r := NewReader(50 * 1024 * 1024)
	if r.maxFileSize != 50*1024*1024 {
		t.Errorf("NewReader() maxFileSize = %v, want %v", r.maxFileSize, 50*1024*1024)
	}
	if r.maxTextSize != 10*1024*1024 {
		t.Errorf("NewReader() maxTextSize = %v, want %v", r.maxTextSize, 10*1024*1024)
	}
}

func TestReader_ReadFile_Errors(t *testing.T) {
	tempDir := t.TempDir()

	txtPath := filepath.Join(tempDir, "report.txt")
	if err := os.WriteFile(txtPath, []byte("not a pdf"), 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	largePath := filepath.Join(tempDir, "large.pdf")
	if err := os.WriteFile(largePath, make([]byte, 2048), 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	brokenPath := filepath.Join(tempDir, "broken.pdf")
	if err := os.WriteFile(brokenPath, []byte("%PDF-1.4 garbage"), 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	reader := NewReader(1024)

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{
			name:    "empty path",
			path:    "",
			wantErr: "path cannot be empty",
		},
		{
			name:    "nonexistent file",
			path:    filepath.Join(tempDir, "missing.pdf"),
			wantErr: "file does not exist",
		},
		{
			name:    "directory instead of file",
			path:    tempDir,
			wantErr: "path is a directory",
		},
		{
			name:    "wrong extension",
			path:    txtPath,
			wantErr: "file is not a PDF",
		},
		{
			name:    "file too large",
			path:    largePath,
			wantErr: "file too large",
		},
		{
			name:    "broken pdf content",
			path:    brokenPath,
			wantErr: "failed to open PDF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reader.ReadFile(tt.path)
			if err == nil {
				t.Fatalf("ReadFile() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ReadFile() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_ValidateFile(t *testing.T) {
	tempDir := t.TempDir()

	txtPath := filepath.Join(tempDir, "report.txt")
	if err := os.WriteFile(txtPath, []byte("not a pdf"), 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	v := NewValidator(1024)

	tests := []struct {
		name        string
		path        string
		wantValid   bool
		wantMessage string
	}{
		{
			name:        "empty path",
			path:        "",
			wantValid:   false,
			wantMessage: "path cannot be empty",
		},
		{
			name:        "nonexistent file",
			path:        filepath.Join(tempDir, "missing.pdf"),
			wantValid:   false,
			wantMessage: "file does not exist",
		},
		{
			name:        "wrong extension",
			path:        txtPath,
			wantValid:   false,
			wantMessage: "file is not a PDF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateFile(tt.path)
			if err != nil {
				t.Fatalf("ValidateFile() unexpected error: %v", err)
			}
			if result.Valid != tt.wantValid {
				t.Errorf("ValidateFile() valid = %v, want %v", result.Valid, tt.wantValid)
			}
			if !strings.Contains(result.Message, tt.wantMessage) {
				t.Errorf("ValidateFile() message = %q, want containing %q", result.Message, tt.wantMessage)
			}
		})
	}
}

func TestValidator_IsValidPDF(t *testing.T) {
	v := NewValidator(1024)
	if v.IsValidPDF("") {
		t.Error("IsValidPDF() = true for empty path, want false")
	}
	if v.IsValidPDF("/nonexistent/report.pdf") {
		t.Error("IsValidPDF() = true for missing file, want false")
	}
}
