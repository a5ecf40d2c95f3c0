package inject

import (
	"fmt"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
)

const (
	DefaultFontName = "Helvetica"
	DefaultFontSize = 11.0

	// textHeightRatio caps the text font size relative to the field height.
	textHeightRatio = 0.8
	// checkboxRatio sizes the checkbox glyph relative to the smaller side.
	checkboxRatio = 0.9
)

// Options is the immutable rendering configuration of an Injector
type Options struct {
	// FontName is a standard-14 text font or one of its short aliases
	// ("helv", "tiro", "cour", ...).
	FontName string
	// FontSize is the default text size in points. Fields shorter than the
	// font shrink it; taller fields never grow it.
	FontSize float64
	// TextColor is used for text and checkbox glyphs.
	TextColor color.SimpleColor
	// StrictGeometry rejects templates with out-of-bounds rects instead of
	// passing them through.
	StrictGeometry bool
}

// DefaultOptions returns Helvetica 11pt in black with permissive geometry
func DefaultOptions() Options {
	return Options{
		FontName:  DefaultFontName,
		FontSize:  DefaultFontSize,
		TextColor: color.Black,
	}
}

// normalize resolves the font alias and checks the remaining values.
func (o Options) normalize() (Options, error) {
	name, err := ResolveFontName(o.FontName)
	if err != nil {
		return o, err
	}
	o.FontName = name

	if math.IsNaN(o.FontSize) || o.FontSize <= 0 {
		return o, fmt.Errorf("font size must be positive, got %g", o.FontSize)
	}

	for _, c := range []float32{o.TextColor.R, o.TextColor.G, o.TextColor.B} {
		if c < 0 || c > 1 {
			return o, fmt.Errorf("text color components must be within [0,1], got %v", o.TextColor)
		}
	}
	return o, nil
}
