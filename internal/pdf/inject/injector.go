// Package inject fills PDF documents with values at template-defined field
// locations.
//
// A Template lists fields with a type (text, date or checkbox), a 1-indexed
// page number and a rectangle given as fractions of the page size. Process
// opens the source document, draws every non-blank value from the DataMap
// inside its field rectangle and returns the serialized result. Injection is
// all-or-nothing: any error aborts the request and no partial output is
// returned.
//
// An Injector holds only immutable Options and may be shared between
// goroutines; every call opens and releases its own Document.
package inject

import (
	"fmt"

	pdferrors "github.com/a3tai/mcp-pdf-mapper/internal/pdf/errors"
)

// Skip reasons reported in a Report
const (
	SkipBlankValue     = "blank_value"
	SkipPageOutOfRange = "page_out_of_range"
)

// SkippedField describes a field that produced no mark
type SkippedField struct {
	Key        string `json:"key"`
	PageNumber int    `json:"page_number"`
	Reason     string `json:"reason"`
}

// Report is the outcome of a successful injection
type Report struct {
	Output    []byte         `json:"-"`
	PageCount int            `json:"page_count"`
	Rendered  []string       `json:"rendered"`
	Skipped   []SkippedField `json:"skipped,omitempty"`
}

// Injector renders template fields into documents
type Injector struct {
	opts Options
}

// NewInjector validates opts and returns an Injector using them
func NewInjector(opts Options) (*Injector, error) {
	normalized, err := opts.normalize()
	if err != nil {
		return nil, fmt.Errorf("invalid render options: %w", err)
	}
	return &Injector{opts: normalized}, nil
}

// Options returns the resolved options
func (in *Injector) Options() Options {
	return in.opts
}

// Process injects data into src according to tpl and returns the new
// document bytes.
func (in *Injector) Process(src []byte, tpl Template, data DataMap) ([]byte, error) {
	report, err := in.ProcessWithReport(src, tpl, data)
	if err != nil {
		return nil, err
	}
	return report.Output, nil
}

// ProcessWithReport is Process with per-field bookkeeping. A panic raised
// while handling the document is returned as a RenderError.
func (in *Injector) ProcessWithReport(src []byte, tpl Template, data DataMap) (report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = pdferrors.NewRenderError("unexpected failure while injecting", fmt.Errorf("%v", r))
		}
	}()

	return in.process(src, tpl, data)
}

func (in *Injector) process(src []byte, tpl Template, data DataMap) (*Report, error) {
	if in.opts.StrictGeometry {
		if err := tpl.ValidateGeometry(); err != nil {
			return nil, err
		}
	}

	doc, err := OpenDocument(src)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	report := &Report{
		PageCount: doc.PageCount(),
		Rendered:  make([]string, 0, len(tpl.Fields)),
	}

	for _, field := range tpl.Fields {
		value, ok := data.Lookup(field.Key)
		if !ok {
			report.Skipped = append(report.Skipped, SkippedField{Key: field.Key, PageNumber: field.PageNumber, Reason: SkipBlankValue})
			continue
		}
		if field.PageNumber < 1 || field.PageNumber > doc.PageCount() {
			report.Skipped = append(report.Skipped, SkippedField{Key: field.Key, PageNumber: field.PageNumber, Reason: SkipPageOutOfRange})
			continue
		}

		if err := in.injectField(doc, field, value); err != nil {
			return nil, err
		}
		report.Rendered = append(report.Rendered, field.Key)
	}

	out, err := doc.Bytes()
	if err != nil {
		return nil, pdferrors.NewRenderError("cannot serialize document", err)
	}
	report.Output = out
	return report, nil
}

func (in *Injector) injectField(doc *Document, field Field, value Value) error {
	page, err := doc.Page(field.PageNumber)
	if err != nil {
		return pdferrors.NewRenderError("cannot load page", err).WithField(field.Key, field.PageNumber)
	}

	rect := MapRect(field.Rect, page.Width, page.Height)
	if err := render(page, field.Type, rect, value, in.opts); err != nil {
		if pdfErr, ok := err.(*pdferrors.PDFError); ok {
			return pdfErr.WithField(field.Key, field.PageNumber)
		}
		return pdferrors.NewRenderError("cannot render field", err).WithField(field.Key, field.PageNumber)
	}
	return nil
}

// PageCount opens src and reports its number of pages
func (in *Injector) PageCount(src []byte) (int, error) {
	return PageCount(src)
}

// PageCount opens src and reports its number of pages
func PageCount(src []byte) (int, error) {
	doc, err := OpenDocument(src)
	if err != nil {
		return 0, err
	}
	defer doc.Close()
	return doc.PageCount(), nil
}
