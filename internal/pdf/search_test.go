package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(files []FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func setupSearchDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "forms", "tax"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cache"), 0o750))

	writePDF(t, dir, "W-9_2024_blank.pdf", 1)
	writePDF(t, filepath.Join(dir, "forms"), "intake.pdf", 2)
	writePDF(t, filepath.Join(dir, "forms", "tax"), "1099-misc.pdf", 1)
	writePDF(t, filepath.Join(dir, ".cache"), "hidden.pdf", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forms", "intake.template.json"), []byte(`{"fields": []}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.pdf"), nil, 0o600))
	return dir
}

func TestSearchDirectory(t *testing.T) {
	dir := setupSearchDir(t)
	s := NewSearch(1024 * 1024)

	result, err := s.SearchDirectory(PDFSearchDirectoryRequest{Directory: dir})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"W-9_2024_blank.pdf", "intake.pdf", "1099-misc.pdf"}, names(result.Files))
	assert.Equal(t, []string{"intake.template.json"}, names(result.Templates))
	assert.Equal(t, 4, result.TotalCount)
	assert.Equal(t, dir, result.Directory)
}

func TestSearchDirectory_Query(t *testing.T) {
	dir := setupSearchDir(t)
	s := NewSearch(1024 * 1024)

	tests := []struct {
		query         string
		wantFiles     []string
		wantTemplates []string
	}{
		{"intake", []string{"intake.pdf"}, []string{"intake.template.json"}},
		{"w-9 blank", []string{"W-9_2024_blank.pdf"}, []string{}},
		{"MISC", []string{"1099-misc.pdf"}, []string{}},
		{"nothing", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			result, err := s.SearchDirectory(PDFSearchDirectoryRequest{Directory: dir, Query: tt.query})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantFiles, names(result.Files))
			assert.ElementsMatch(t, tt.wantTemplates, names(result.Templates))
			assert.Equal(t, tt.query, result.SearchQuery)
		})
	}
}

func TestSearchDirectory_Errors(t *testing.T) {
	s := NewSearch(1024)

	_, err := s.SearchDirectory(PDFSearchDirectoryRequest{})
	assert.Error(t, err)

	_, err = s.SearchDirectory(PDFSearchDirectoryRequest{Directory: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestSearchDirectory_SkipsEscapingSymlinks(t *testing.T) {
	dir := t.TempDir()
	outside := writePDF(t, t.TempDir(), "secret.pdf", 1)
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "link.pdf")))
	writePDF(t, dir, "real.pdf", 1)

	result, err := NewSearch(1024 * 1024).SearchDirectory(PDFSearchDirectoryRequest{Directory: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"real.pdf"}, names(result.Files))
}

func TestFindPDFsInDirectoryLimited(t *testing.T) {
	dir := setupSearchDir(t)
	s := NewSearch(1024 * 1024)

	files, err := s.FindPDFsInDirectoryLimited(dir, 2)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = s.FindPDFsInDirectoryLimited(dir, 0)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestMatchesQuery(t *testing.T) {
	assert.True(t, matchesQuery("Anything.pdf", ""))
	assert.True(t, matchesQuery("Quarterly_Report_Q3.pdf", "report q3"))
	assert.True(t, matchesQuery("lease-agreement.template.json", "lease template"))
	assert.False(t, matchesQuery("lease-agreement.pdf", "invoice"))
}
