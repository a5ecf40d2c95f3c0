package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-mapper/internal/pdf/pdftest"
)

const testTemplate = `{
	"name": "intake",
	"fields": [
		{"key": "name", "type": "text", "page_number": 1, "rect": {"x": 0.1, "y": 0.1, "w": 0.5, "h": 0.05}},
		{"key": "visit", "type": "date", "page_number": 1, "rect": {"x": 0.1, "y": 0.2, "w": 0.3, "h": 0.05}},
		{"key": "consent", "type": "checkbox", "page_number": 2, "rect": {"x": 0.1, "y": 0.3, "w": 0.04, "h": 0.04}}
	]
}`

type fixture struct {
	dir      string
	source   string
	template string
	data     string
}

func newFixture(t *testing.T, pages int) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		source:   filepath.Join(dir, "intake.pdf"),
		template: filepath.Join(dir, "intake.json"),
		data:     filepath.Join(dir, "data.json"),
	}
	require.NoError(t, os.WriteFile(f.source, pdftest.Build(pdftest.Pages(pages)...), 0o600))
	require.NoError(t, os.WriteFile(f.template, []byte(testTemplate), 0o600))
	require.NoError(t, os.WriteFile(f.data, []byte(`{"name": "Jo Park", "visit": "2024-02-29"}`), 0o600))
	return f
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_FillDefaultOutput(t *testing.T) {
	f := newFixture(t, 1)

	code, stdout, stderr := runCLI(t, "", "-t", f.template, "-d", f.data, f.source)
	require.Equal(t, 0, code, stderr)

	out := filepath.Join(f.dir, "intake_filled.pdf")
	assert.Contains(t, stdout, "Output: "+out)
	assert.Contains(t, stdout, "Rendered: 2 field(s)")
	assert.Contains(t, stdout, "consent (page 2): blank_value")

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	contents := pdftest.Contents(t, written, 1)
	assert.Contains(t, contents, "<30322F32392F32303234> Tj")
	assert.Contains(t, contents, "/FMHelvetica 11 Tf")
}

func TestRun_FillFromStdinJSON(t *testing.T) {
	f := newFixture(t, 2)
	out := filepath.Join(f.dir, "custom.pdf")

	code, stdout, stderr := runCLI(t, `{"consent": "yes"}`,
		"--template", f.template, "--data", "-", "--out", out,
		"--font", "cour", "--text-color", "ff0000", "--format", "json", f.source)
	require.Equal(t, 0, code, stderr)

	var result FillResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.True(t, result.Success)
	assert.Equal(t, out, result.Output)
	assert.Equal(t, 2, result.PageCount)
	assert.Equal(t, []string{"consent"}, result.Rendered)
	assert.Len(t, result.Skipped, 2)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, pdftest.Contents(t, written, 2), "1 0 0 rg")
}

func TestRun_EnvironmentFont(t *testing.T) {
	f := newFixture(t, 1)
	t.Setenv("PDF_MAPPER_FONT", "Times-Roman")

	code, _, stderr := runCLI(t, "", "-t", f.template, "-d", f.data, "-o", filepath.Join(f.dir, "o.pdf"), f.source)
	require.Equal(t, 0, code, stderr)

	written, err := os.ReadFile(filepath.Join(f.dir, "o.pdf"))
	require.NoError(t, err)
	assert.Contains(t, pdftest.Contents(t, written, 1), "/FMTimes-Roman 11 Tf")
}

func TestRun_Pages(t *testing.T) {
	f := newFixture(t, 3)

	code, stdout, _ := runCLI(t, "", "--pages", f.source)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Source: "+f.source+" (3 pages)\n", stdout)

	garbage := filepath.Join(f.dir, "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("not a pdf"), 0o600))

	code, stdout, _ = runCLI(t, "", "--pages", "--format", "json", garbage)
	assert.Equal(t, 1, code)
	var result FillResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.False(t, result.Success)
	assert.Equal(t, "DECODE", result.ErrorType)
}

func TestRun_Errors(t *testing.T) {
	f := newFixture(t, 1)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{"no source", []string{"-t", f.template}, 2, "", "exactly one source PDF"},
		{"bad format", []string{"--format", "xml", f.source}, 2, "", `unknown format "xml"`},
		{"bad color", []string{"--text-color", "#zz0000", f.source}, 2, "", "Error:"},
		{"bad font", []string{"--font", "Papyrus", f.source}, 2, "", "Error:"},
		{"missing template", []string{f.source}, 1, "--template is required", ""},
		{"unknown flag", []string{"--bogus", f.source}, 2, "", "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, "", tt.args...)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, stdout, tt.wantOut)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestRun_UnknownFlagPrintsUsage(t *testing.T) {
	f := newFixture(t, 1)

	code, stdout, stderr := runCLI(t, "", "--bogus", f.source)
	assert.Equal(t, 2, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error: unknown flag: --bogus")
	assert.Contains(t, stderr, "USAGE:")
	assert.Contains(t, stderr, "--template")
}

func TestRun_Help(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "pdf_fill [OPTIONS] <source.pdf>")
	assert.Contains(t, stdout, "--strict-geometry")
}
