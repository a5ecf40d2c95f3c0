package inject

import (
	"fmt"
	"math"

	pdferrors "github.com/a3tai/mcp-pdf-mapper/internal/pdf/errors"
)

// FieldType selects how a field's value is rendered
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldDate     FieldType = "date"
	FieldCheckbox FieldType = "checkbox"
)

// boundsEpsilon absorbs float noise such as 0.7+0.3 when checking x+w <= 1.
const boundsEpsilon = 1e-9

// NormalizedRect is a field rectangle expressed as fractions of the page
// width and height, with (X, Y) the top-left corner.
type NormalizedRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// InBounds reports whether the rect has finite, non-negative components and
// lies inside the unit square.
func (r NormalizedRect) InBounds() bool {
	for _, v := range []float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return r.X+r.W <= 1+boundsEpsilon && r.Y+r.H <= 1+boundsEpsilon
}

// Field is a named, typed, positioned slot in a template
type Field struct {
	ID         string         `json:"id"`
	Key        string         `json:"key"`
	Type       FieldType      `json:"type"`
	PageNumber int            `json:"page_number"` // 1-indexed
	Rect       NormalizedRect `json:"rect"`
}

// Template is an ordered collection of fields for one document layout.
// PageCount is informational and is not checked against the document.
type Template struct {
	Name      string  `json:"name"`
	PageCount int     `json:"page_count"`
	Fields    []Field `json:"fields"`
}

// ValidateGeometry fails with a validation error on the first field whose
// rect is out of bounds.
func (t Template) ValidateGeometry() error {
	for _, f := range t.Fields {
		if !f.Rect.InBounds() {
			return pdferrors.NewValidationError("field rect outside page bounds").
				WithField(f.Key, f.PageNumber).
				WithContext(fmt.Sprintf("x=%g y=%g w=%g h=%g", f.Rect.X, f.Rect.Y, f.Rect.W, f.Rect.H))
		}
	}
	return nil
}

// AbsoluteRect is a NormalizedRect resolved against one page, in page units
// with a top-left origin and y growing downward.
type AbsoluteRect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

func (r AbsoluteRect) Width() float64 { return r.X1 - r.X0 }
func (r AbsoluteRect) Height() float64 { return r.Y1 - r.Y0 }

// Empty reports whether the rect has no drawable area.
func (r AbsoluteRect) Empty() bool {
	return !(r.Width() > 0) || !(r.Height() > 0)
}

// MapRect projects rect onto a page of the given size. Values are passed
// through without clamping.
func MapRect(rect NormalizedRect, pageWidth, pageHeight float64) AbsoluteRect {
	return AbsoluteRect{
		X0: rect.X * pageWidth,
		Y0: rect.Y * pageHeight,
		X1: (rect.X + rect.W) * pageWidth,
		Y1: (rect.Y + rect.H) * pageHeight,
	}
}
