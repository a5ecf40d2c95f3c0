// Package pdftest builds small, well-formed PDF documents and inspects
// rendered output for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/require"
)

// Page describes one page of a generated document
type Page struct {
	Width   float64
	Height  float64
	Rotate  int
	Content string // uncompressed content stream, optional
	// InheritBox leaves the MediaBox off the page so it is inherited from
	// the page tree root (US Letter).
	InheritBox bool
}

// Letter returns an empty US Letter page
func Letter() Page {
	return Page{Width: 612, Height: 792}
}

// Build writes a PDF 1.4 document with the given pages and a classic
// cross-reference table.
func Build(pages ...Page) []byte {
	// Object 1 is the catalog, 2 the page tree; pages and their content
	// streams follow.
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>", "")

	kids := make([]string, 0, len(pages))
	for _, p := range pages {
		pageNum := len(objects) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))

		var dict strings.Builder
		dict.WriteString("<< /Type /Page /Parent 2 0 R /Resources << >>")
		if !p.InheritBox {
			fmt.Fprintf(&dict, " /MediaBox [0 0 %s %s]", num(p.Width), num(p.Height))
		}
		if p.Rotate != 0 {
			fmt.Fprintf(&dict, " /Rotate %d", p.Rotate)
		}
		if p.Content != "" {
			fmt.Fprintf(&dict, " /Contents %d 0 R", pageNum+1)
		}
		dict.WriteString(" >>")
		objects = append(objects, dict.String())

		if p.Content != "" {
			objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.Content), p.Content))
		}
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
		strings.Join(kids, " "), len(pages))

	return serialize(objects, "")
}

// BuildShared writes an n-page US Letter document shaped like typical
// producer output: every page points at one indirect Resources dictionary
// holding an indirect Helvetica font as /F1, draws through a Contents array
// of two streams, and carries a text annotation. The trailer has an Info
// dictionary.
func BuildShared(n int) []byte {
	// 1 catalog, 2 page tree, 3 resources, 4 font map, 5 Helvetica, 6 info.
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"",
		"<< /Font 4 0 R /ProcSet [/PDF /Text] >>",
		"<< /F1 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		"<< /Title (pdftest) /Producer (pdftest) >>",
	}

	kids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pageNum := len(objects) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))

		text := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (Page %d) Tj ET", i)
		rule := "0 0 1 RG 72 700 m 300 700 l S"
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources 3 0 R /Contents [%d 0 R %d 0 R] /Annots [%d 0 R] >>",
				pageNum+1, pageNum+2, pageNum+3),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(text), text),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(rule), rule),
			fmt.Sprintf("<< /Type /Annot /Subtype /Text /Rect [72 650 92 670] /Contents (Note %d) >>", i),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
		strings.Join(kids, " "), n)

	return serialize(objects, " /Info 6 0 R")
}

// serialize lays objects out as 1..len(objects) followed by a classic
// cross-reference table.
func serialize(objects []string, trailer string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, trailer, xref)
	return buf.Bytes()
}

// Compress rewrites data with object streams and a cross-reference stream.
func Compress(t testing.TB, data []byte) []byte {
	t.Helper()
	conf := relaxed()
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true

	var buf bytes.Buffer
	require.NoError(t, api.Optimize(bytes.NewReader(data), &buf, conf))
	return buf.Bytes()
}

// Validate fails the test unless data passes a full relaxed validation.
func Validate(t testing.TB, data []byte) {
	t.Helper()
	require.NoError(t, api.Validate(bytes.NewReader(data), relaxed()))
}

// Pages returns n US Letter pages
func Pages(n int) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Letter()
	}
	return pages
}

func relaxed() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func read(t testing.TB, data []byte) *model.Context {
	t.Helper()
	ctx, err := api.ReadContext(bytes.NewReader(data), relaxed())
	require.NoError(t, err)
	require.NoError(t, ctx.EnsurePageCount())
	return ctx
}

// Contents returns the decoded content streams of page n, one per line
// group, in drawing order.
func Contents(t testing.TB, data []byte, n int) string {
	t.Helper()
	ctx := read(t, data)

	pageDict, _, _, err := ctx.PageDict(n, false)
	require.NoError(t, err)
	require.NotNil(t, pageDict)

	obj, found := pageDict.Find("Contents")
	if !found {
		return ""
	}
	o, err := ctx.Dereference(obj)
	require.NoError(t, err)

	refs, ok := o.(types.Array)
	if !ok {
		refs = types.Array{obj}
	}

	var sb strings.Builder
	for _, ref := range refs {
		o, err := ctx.Dereference(ref)
		require.NoError(t, err)
		sd, ok := o.(types.StreamDict)
		require.True(t, ok, "content entry is %T, want stream", o)
		require.NoError(t, sd.Decode())
		sb.Write(sd.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Fonts returns the BaseFont of every font resource of page n, keyed by
// resource name.
func Fonts(t testing.TB, data []byte, n int) map[string]string {
	t.Helper()
	ctx := read(t, data)

	pageDict, _, _, err := ctx.PageDict(n, false)
	require.NoError(t, err)

	fonts := make(map[string]string)
	resObj, found := pageDict.Find("Resources")
	if !found {
		return fonts
	}
	res, err := ctx.DereferenceDict(resObj)
	require.NoError(t, err)
	fontObj, found := res.Find("Font")
	if !found {
		return fonts
	}
	fontDict, err := ctx.DereferenceDict(fontObj)
	require.NoError(t, err)

	for name, ref := range fontDict {
		fd, err := ctx.DereferenceDict(ref)
		require.NoError(t, err)
		if base, ok := fd.Find("BaseFont"); ok {
			if bf, ok := base.(types.Name); ok {
				fonts[name] = string(bf)
			}
		}
	}
	return fonts
}

// Annots returns the Subtype of every annotation on page n
func Annots(t testing.TB, data []byte, n int) []string {
	t.Helper()
	ctx := read(t, data)

	pageDict, _, _, err := ctx.PageDict(n, false)
	require.NoError(t, err)

	obj, found := pageDict.Find("Annots")
	if !found {
		return nil
	}
	arr, err := ctx.DereferenceArray(obj)
	require.NoError(t, err)

	var subtypes []string
	for _, ref := range arr {
		d, err := ctx.DereferenceDict(ref)
		require.NoError(t, err)
		require.NotNil(t, d, "dangling annotation %v", ref)
		if st := d.NameEntry("Subtype"); st != nil {
			subtypes = append(subtypes, *st)
		}
	}
	return subtypes
}

// Info returns the document information dictionary entry key
func Info(t testing.TB, data []byte, key string) string {
	t.Helper()
	ctx := read(t, data)
	if ctx.Info == nil {
		return ""
	}
	d, err := ctx.DereferenceDict(*ctx.Info)
	require.NoError(t, err)
	if d == nil {
		return ""
	}
	obj, found := d.Find(key)
	if !found {
		return ""
	}
	s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	require.NoError(t, err)
	return s
}

// PageCount reads data back and returns its page count
func PageCount(t testing.TB, data []byte) int {
	t.Helper()
	return read(t, data).PageCount
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
