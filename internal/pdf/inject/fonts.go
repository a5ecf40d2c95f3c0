package inject

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/font"
	"golang.org/x/text/encoding/charmap"
)

const dingbatsFont = "ZapfDingbats"

// Checkbox markers in ZapfDingbats encoding.
const (
	glyphChecked   = "4" // a20, heavy check mark
	glyphUnchecked = "q" // a74, shadowed white square
)

// lineSpacing is the baseline-to-baseline distance per point of font size.
const lineSpacing = 1.15

// glyphMidline is the vertical center of the checkbox glyphs above the
// baseline, per point of font size.
const glyphMidline = 0.35

// fontMetrics holds ascender and descender heights per point of font size,
// taken from the standard-14 AFM files.
type fontMetrics struct {
	ascent  float64
	descent float64
}

var textFonts = map[string]fontMetrics{
	"Helvetica":             {0.718, 0.207},
	"Helvetica-Bold":        {0.718, 0.207},
	"Helvetica-Oblique":     {0.718, 0.207},
	"Helvetica-BoldOblique": {0.718, 0.207},
	"Times-Roman":           {0.683, 0.217},
	"Times-Bold":            {0.683, 0.217},
	"Times-Italic":          {0.683, 0.217},
	"Times-BoldItalic":      {0.683, 0.217},
	"Courier":               {0.629, 0.157},
	"Courier-Bold":          {0.629, 0.157},
	"Courier-Oblique":       {0.629, 0.157},
	"Courier-BoldOblique":   {0.629, 0.157},
}

// fontAliases maps the short names used by MuPDF-based tooling.
var fontAliases = map[string]string{
	"helv": "Helvetica",
	"hebo": "Helvetica-Bold",
	"heit": "Helvetica-Oblique",
	"hebi": "Helvetica-BoldOblique",
	"tiro": "Times-Roman",
	"tibo": "Times-Bold",
	"tiit": "Times-Italic",
	"tibi": "Times-BoldItalic",
	"cour": "Courier",
	"cobo": "Courier-Bold",
	"coit": "Courier-Oblique",
	"cobi": "Courier-BoldOblique",
}

// ResolveFontName returns the standard-14 base font for name. An empty name
// selects the default font.
func ResolveFontName(name string) (string, error) {
	if name == "" {
		return DefaultFontName, nil
	}
	if base, ok := fontAliases[strings.ToLower(name)]; ok {
		return base, nil
	}
	if _, ok := textFonts[name]; ok {
		return name, nil
	}
	return "", fmt.Errorf("unsupported font %q (supported: %s)", name, strings.Join(SupportedFonts(), ", "))
}

// SupportedFonts lists the accepted base font names
func SupportedFonts() []string {
	names := make([]string, 0, len(textFonts))
	for name := range textFonts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func metricsFor(fontName string) fontMetrics {
	if m, ok := textFonts[fontName]; ok {
		return m
	}
	return fontMetrics{ascent: 0.75, descent: 0.25}
}

// textWidth measures s, already in the font's single-byte encoding.
func textWidth(s, fontName string, size float64) float64 {
	return font.TextWidth(s, fontName, 1000) * size / 1000
}

// encodeWinAnsi converts UTF-8 text to the single-byte encoding declared for
// the text fonts. Runes outside the encoding are an error.
func encodeWinAnsi(s string) (string, error) {
	out, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("text %q is not representable in WinAnsiEncoding: %w", s, err)
	}
	return out, nil
}
