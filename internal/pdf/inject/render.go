package inject

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	pdferrors "github.com/a3tai/mcp-pdf-mapper/internal/pdf/errors"
)

// dateLayouts are the ISO-8601 forms accepted for date fields. time.Parse
// accepts fractional seconds after the seconds field without a layout for it.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"20060102",
}

// FormatDate renders an ISO-8601 date or date-time as MM/DD/YYYY. Input
// that does not parse is returned unchanged.
func FormatDate(s string) string {
	candidate := s
	if len(candidate) > 10 && candidate[10] == ' ' {
		candidate = candidate[:10] + "T" + candidate[11:]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t.Format("01/02/2006")
		}
	}
	return s
}

// render draws v into r on page p according to the field type. Unknown
// types render as text.
func render(p *Page, ft FieldType, r AbsoluteRect, v Value, opts Options) error {
	switch ft {
	case FieldCheckbox:
		return renderCheckbox(p, r, v.Truthy(), opts)
	case FieldDate:
		return renderText(p, r, FormatDate(v.String()), opts)
	default:
		return renderText(p, r, v.String(), opts)
	}
}

// renderText draws left-aligned, word-wrapped text inside r. Lines that
// start below the rect are dropped and the rest is clipped to r.
func renderText(p *Page, r AbsoluteRect, text string, opts Options) error {
	if r.Empty() {
		return nil
	}

	encoded, err := encodeWinAnsi(text)
	if err != nil {
		return pdferrors.NewRenderError("cannot encode text", err)
	}

	size := math.Min(opts.FontSize, r.Height()*textHeightRatio)
	m := metricsFor(opts.FontName)
	leading := size * lineSpacing

	lines := wrapLines(encoded, r.Width(), func(s string) float64 {
		return textWidth(s, opts.FontName, size)
	})

	fontName, err := p.fontResource(opts.FontName)
	if err != nil {
		return pdferrors.NewRenderError("cannot register font", err)
	}

	var ops bytes.Buffer
	fmt.Fprintf(&ops, "q\n%s %s %s %s re W n\n",
		fmtNum(r.X0), fmtNum(p.Height-r.Y1), fmtNum(r.Width()), fmtNum(r.Height()))
	fmt.Fprintf(&ops, "BT\n/%s %s Tf\n%s rg\n%s TL\n",
		fontName, fmtNum(size), colorOps(opts), fmtNum(leading))

	baseline := r.Y0 + m.ascent*size
	fmt.Fprintf(&ops, "%s %s Td\n", fmtNum(r.X0), fmtNum(p.Height-baseline))
	for i, line := range lines {
		if i > 0 {
			if baseline-m.ascent*size >= r.Y1 {
				break
			}
			ops.WriteString("T* ")
		}
		fmt.Fprintf(&ops, "%s Tj\n", hexString(line))
		baseline += leading
	}
	ops.WriteString("ET\nQ\n")

	p.content.Write(ops.Bytes())
	return nil
}

// renderCheckbox draws a single marker glyph centered in r.
func renderCheckbox(p *Page, r AbsoluteRect, checked bool, opts Options) error {
	size := math.Min(r.Height()*checkboxRatio, r.Width()*checkboxRatio)
	if !(size > 0) {
		return nil
	}

	glyph := glyphUnchecked
	if checked {
		glyph = glyphChecked
	}

	fontName, err := p.fontResource(dingbatsFont)
	if err != nil {
		return pdferrors.NewRenderError("cannot register font", err)
	}

	w := textWidth(glyph, dingbatsFont, size)
	x := r.X0 + (r.Width()-w)/2
	baseline := r.Y0 + r.Height()/2 + glyphMidline*size

	var ops bytes.Buffer
	fmt.Fprintf(&ops, "q\nBT\n/%s %s Tf\n%s rg\n%s %s Td\n%s Tj\nET\nQ\n",
		fontName, fmtNum(size), colorOps(opts), fmtNum(x), fmtNum(p.Height-baseline), hexString(glyph))

	p.content.Write(ops.Bytes())
	return nil
}

// wrapLines breaks text into lines no wider than maxWidth using greedy word
// wrapping. Explicit newlines start a new line and words wider than maxWidth
// are split. text must use a single-byte encoding.
func wrapLines(text string, maxWidth float64, width func(string) float64) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		line := ""
		for _, word := range words {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if width(candidate) <= maxWidth {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
			for len(word) > 1 && width(word) > maxWidth {
				n := fitPrefix(word, maxWidth, width)
				lines = append(lines, word[:n])
				word = word[n:]
			}
			line = word
		}
		lines = append(lines, line)
	}
	return lines
}

// fitPrefix returns the length of the longest prefix of s that fits in
// maxWidth, and at least 1.
func fitPrefix(s string, maxWidth float64, width func(string) float64) int {
	n := 1
	for n < len(s) && width(s[:n+1]) <= maxWidth {
		n++
	}
	return n
}

func colorOps(opts Options) string {
	c := opts.TextColor
	return fmt.Sprintf("%s %s %s", fmtNum(float64(c.R)), fmtNum(float64(c.G)), fmtNum(float64(c.B)))
}

// hexString encodes raw font bytes as a PDF hex string.
func hexString(s string) string {
	return "<" + strings.ToUpper(hex.EncodeToString([]byte(s))) + ">"
}

// fmtNum formats a coordinate with at most three decimals.
func fmtNum(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
