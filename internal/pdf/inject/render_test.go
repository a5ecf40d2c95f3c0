package inject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-03-15", "03/15/2024"},
		{"2024-03-15T10:00:00Z", "03/15/2024"},
		{"2024-03-15T10:00:00+02:00", "03/15/2024"},
		{"2024-03-15 10:00:00", "03/15/2024"},
		{"2024-03-15T10:00", "03/15/2024"},
		{"2024-03-15T10:00:00.123Z", "03/15/2024"},
		{"20240315", "03/15/2024"},
		{"not-a-date", "not-a-date"},
		{"03/15/2024", "03/15/2024"},
		{"2024-13-01", "2024-13-01"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDate(tt.input))
		})
	}
}

// charWidth measures every byte as one unit.
func charWidth(s string) float64 { return float64(len(s)) }

func TestWrapLines(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth float64
		want     []string
	}{
		{"fits", "hello world", 20, []string{"hello world"}},
		{"wraps at word", "hello big world", 10, []string{"hello big", "world"}},
		{"splits long word", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"long word after short", "ab cdefgh", 4, []string{"ab", "cdef", "gh"}},
		{"newlines", "one\ntwo\r\nthree", 20, []string{"one", "two", "three"}},
		{"blank line kept", "a\n\nb", 20, []string{"a", "", "b"}},
		{"collapses spaces", "a    b", 20, []string{"a b"}},
		{"narrower than a byte", "abc", 0.5, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapLines(tt.text, tt.maxWidth, charWidth))
		})
	}
}

func TestFmtNum(t *testing.T) {
	assert.Equal(t, "0", fmtNum(0))
	assert.Equal(t, "0", fmtNum(-0.0001))
	assert.Equal(t, "612", fmtNum(612))
	assert.Equal(t, "1.5", fmtNum(1.5))
	assert.Equal(t, "0.333", fmtNum(1.0/3))
	assert.Equal(t, "-12.25", fmtNum(-12.25))
}

func TestHexString(t *testing.T) {
	assert.Equal(t, "<30332F31352F32303234>", hexString("03/15/2024"))
	assert.Equal(t, "<34>", hexString(glyphChecked))
	assert.Equal(t, "<71>", hexString(glyphUnchecked))
	assert.Equal(t, "<>", hexString(""))
}

func TestEncodeWinAnsi(t *testing.T) {
	out, err := encodeWinAnsi("Café €5")
	assert.NoError(t, err)
	assert.Equal(t, "Caf\xe9 \x805", out)

	_, err = encodeWinAnsi("日本")
	assert.Error(t, err)
}

func TestResolveFontName(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"", "Helvetica", false},
		{"helv", "Helvetica", false},
		{"TIRO", "Times-Roman", false},
		{"Courier-Bold", "Courier-Bold", false},
		{"Comic Sans", "", true},
		{"ZapfDingbats", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ResolveFontName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextWidth(t *testing.T) {
	// Helvetica "a" is 556/1000 em.
	assert.InDelta(t, 5.56, textWidth("a", "Helvetica", 10), 0.01)
	assert.InDelta(t, 2*textWidth("a", "Courier", 12), textWidth("ab", "Courier", 12), 1e-9)
}
