package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-mapper/internal/pdf/pdftest"
)

func TestValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	valid := writePDF(t, dir, "valid.pdf", 2)

	empty := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o600))
	fake := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(fake, []byte("this is not a pdf at all"), 0o600))

	v := NewValidator(1024 * 1024)

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"valid", valid, ""},
		{"empty path", "", "path cannot be empty"},
		{"missing", filepath.Join(dir, "missing.pdf"), "does not exist"},
		{"directory", dir, "is a directory"},
		{"wrong extension", text, "not a PDF"},
		{"empty file", empty, "file is empty"},
		{"not a pdf", fake, "invalid PDF file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFile(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				assert.True(t, v.IsValidPDF(tt.path))
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.False(t, v.IsValidPDF(tt.path))
		})
	}
}

func TestValidator_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, "big.pdf", 1)
	size := int64(len(pdftest.Build(pdftest.Letter())))

	err := NewValidator(size - 1).ValidateFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")

	assert.NoError(t, NewValidator(size).ValidateFile(path))
	assert.NoError(t, NewValidator(size).ValidateSize(size))
	assert.Error(t, NewValidator(size).ValidateSize(size+1))
}
