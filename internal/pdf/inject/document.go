package inject

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pdferrors "github.com/a3tai/mcp-pdf-mapper/internal/pdf/errors"
)

// maxTreeDepth bounds the walk up the page tree for inherited attributes.
const maxTreeDepth = 32

// ErrDocumentClosed is returned by operations on a closed Document
var ErrDocumentClosed = errors.New("document is closed")

// Document is a decoded PDF owned by a single request. All mutation happens
// on the in-memory model; the source bytes are never written.
type Document struct {
	ctx   *model.Context
	fonts map[string]types.IndirectRef
	pages map[int]*Page
}

func newReadConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// OpenDocument decodes src into a Document. The caller must Close it.
func OpenDocument(src []byte) (doc *Document, err error) {
	if len(src) == 0 {
		return nil, pdferrors.NewDecodeError(errors.New("empty input"))
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = pdferrors.NewDecodeError(fmt.Errorf("malformed document: %v", r))
		}
	}()

	ctx, err := api.ReadContext(bytes.NewReader(src), newReadConfiguration())
	if err != nil {
		return nil, pdferrors.NewDecodeError(err)
	}
	// The writer only emits objects the validation pass has loaded.
	if err := api.ValidateContext(ctx); err != nil {
		return nil, pdferrors.NewDecodeError(fmt.Errorf("failed to validate document: %w", err))
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pdferrors.NewDecodeError(fmt.Errorf("failed to ensure page count: %w", err))
	}

	return &Document{
		ctx:   ctx,
		fonts: make(map[string]types.IndirectRef),
		pages: make(map[int]*Page),
	}, nil
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	if d.ctx == nil {
		return 0
	}
	return d.ctx.PageCount
}

// Page returns page number n (1-based)
func (d *Document) Page(n int) (*Page, error) {
	if d.ctx == nil {
		return nil, ErrDocumentClosed
	}
	if p, ok := d.pages[n]; ok {
		return p, nil
	}
	if n < 1 || n > d.ctx.PageCount {
		return nil, fmt.Errorf("invalid page number %d (document has %d pages)", n, d.ctx.PageCount)
	}

	pageDict, _, _, err := d.ctx.PageDict(n, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load page %d: %w", n, err)
	}
	if pageDict == nil {
		return nil, fmt.Errorf("page %d not found", n)
	}

	box := d.rectEntry(pageDict, "CropBox")
	if box == nil {
		box = d.rectEntry(pageDict, "MediaBox")
	}
	if box == nil {
		box = types.NewRectangle(0, 0, 612, 792)
	}

	rotation := 0
	if obj := d.inherited(pageDict, "Rotate"); obj != nil {
		if i, ok := obj.(types.Integer); ok {
			rotation = ((int(i) % 360) + 360) % 360
		}
	}
	if rotation%90 != 0 {
		rotation = 0
	}

	p := &Page{
		Number:   n,
		Width:    box.Width(),
		Height:   box.Height(),
		Rotation: rotation,
		doc:      d,
		dict:     pageDict,
		box:      box,
		fonts:    make(map[string]string),
	}
	if rotation == 90 || rotation == 270 {
		p.Width, p.Height = p.Height, p.Width
	}
	d.pages[n] = p
	return p, nil
}

// Bytes writes pending page content into the model and serializes it.
func (d *Document) Bytes() ([]byte, error) {
	if d.ctx == nil {
		return nil, ErrDocumentClosed
	}

	nums := make([]int, 0, len(d.pages))
	for n := range d.pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for _, n := range nums {
		if err := d.pages[n].flush(); err != nil {
			return nil, fmt.Errorf("failed to update page %d: %w", n, err)
		}
	}

	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases the document. It is safe to call more than once.
func (d *Document) Close() error {
	d.ctx = nil
	d.pages = nil
	d.fonts = nil
	return nil
}

// inherited looks key up on dict and then along its Parent chain.
func (d *Document) inherited(dict types.Dict, key string) types.Object {
	for depth := 0; dict != nil && depth < maxTreeDepth; depth++ {
		if obj, found := dict.Find(key); found && obj != nil {
			o, err := d.ctx.Dereference(obj)
			if err != nil {
				return nil
			}
			return o
		}
		parent, found := dict.Find("Parent")
		if !found {
			return nil
		}
		next, err := d.ctx.DereferenceDict(parent)
		if err != nil {
			return nil
		}
		dict = next
	}
	return nil
}

// rectEntry reads an inheritable box entry such as MediaBox.
func (d *Document) rectEntry(dict types.Dict, key string) *types.Rectangle {
	arr, ok := d.inherited(dict, key).(types.Array)
	if !ok || len(arr) != 4 {
		return nil
	}

	var v [4]float64
	for i, e := range arr {
		o, err := d.ctx.Dereference(e)
		if err != nil {
			return nil
		}
		switch n := o.(type) {
		case types.Integer:
			v[i] = float64(n)
		case types.Float:
			v[i] = float64(n)
		default:
			return nil
		}
	}
	return types.NewRectangle(math.Min(v[0], v[2]), math.Min(v[1], v[3]), math.Max(v[0], v[2]), math.Max(v[1], v[3]))
}

// fontRef returns the shared font dictionary for a standard-14 font.
func (d *Document) fontRef(baseFont string) (types.IndirectRef, error) {
	if ref, ok := d.fonts[baseFont]; ok {
		return ref, nil
	}

	fd := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(baseFont),
	}
	if baseFont != dingbatsFont {
		fd["Encoding"] = types.Name("WinAnsiEncoding")
	}

	ref, err := d.ctx.IndRefForNewObject(fd)
	if err != nil {
		return types.IndirectRef{}, err
	}
	d.fonts[baseFont] = *ref
	return *ref, nil
}

// newContentStream adds a Flate-compressed stream object holding content.
func (d *Document) newContentStream(content []byte) (types.IndirectRef, error) {
	sd := types.NewStreamDict(types.NewDict(), 0, nil, nil, []types.PDFFilter{{Name: filter.Flate}})
	sd.InsertName("Filter", filter.Flate)
	sd.Content = content
	if err := sd.Encode(); err != nil {
		return types.IndirectRef{}, err
	}
	length := int64(len(sd.Raw))
	sd.StreamLength = &length
	sd.Dict["Length"] = types.Integer(length)

	ref, err := d.ctx.IndRefForNewObject(sd)
	if err != nil {
		return types.IndirectRef{}, err
	}
	return *ref, nil
}

// Page is one page of a Document. Width and Height are the visible
// dimensions, already swapped for pages rotated by 90 or 270 degrees.
type Page struct {
	Number   int
	Width    float64
	Height   float64
	Rotation int

	doc     *Document
	dict    types.Dict
	box     *types.Rectangle
	fonts   map[string]string
	content bytes.Buffer
}

// fontResource registers baseFont in the page resources and returns the
// resource name to use with Tf.
func (p *Page) fontResource(baseFont string) (string, error) {
	if name, ok := p.fonts[baseFont]; ok {
		return name, nil
	}

	ref, err := p.doc.fontRef(baseFont)
	if err != nil {
		return "", err
	}
	fontDict, err := p.fontDict()
	if err != nil {
		return "", err
	}

	name := "FM" + baseFont
	for i := 1; ; i++ {
		if _, taken := fontDict[name]; !taken {
			break
		}
		name = fmt.Sprintf("FM%s%d", baseFont, i)
	}
	fontDict[name] = ref
	p.fonts[baseFont] = name
	return name, nil
}

func (p *Page) resources() (types.Dict, error) {
	ctx := p.doc.ctx
	if obj, found := p.dict.Find("Resources"); found && obj != nil {
		res, err := ctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	res := types.NewDict()
	if inh, ok := p.doc.inherited(p.dict, "Resources").(types.Dict); ok {
		for k, v := range inh {
			res[k] = v
		}
	}
	p.dict["Resources"] = res
	return res, nil
}

func (p *Page) fontDict() (types.Dict, error) {
	res, err := p.resources()
	if err != nil {
		return nil, err
	}
	if obj, found := res.Find("Font"); found && obj != nil {
		fd, err := p.doc.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		if fd != nil {
			return fd, nil
		}
	}
	fd := types.NewDict()
	res["Font"] = fd
	return fd, nil
}

// transform maps the visible page space (origin bottom-left of the page as
// displayed) onto the page's user space.
func (p *Page) transform() string {
	b := p.box
	switch p.Rotation {
	case 90:
		return fmt.Sprintf("0 1 -1 0 %s %s cm", fmtNum(b.UR.X), fmtNum(b.LL.Y))
	case 180:
		return fmt.Sprintf("-1 0 0 -1 %s %s cm", fmtNum(b.UR.X), fmtNum(b.UR.Y))
	case 270:
		return fmt.Sprintf("0 -1 1 0 %s %s cm", fmtNum(b.LL.X), fmtNum(b.UR.Y))
	default:
		return fmt.Sprintf("1 0 0 1 %s %s cm", fmtNum(b.LL.X), fmtNum(b.LL.Y))
	}
}

// flush appends the pending marks as a new content stream. The existing
// content is wrapped in q/Q so its graphics state cannot leak into ours.
func (p *Page) flush() error {
	if p.content.Len() == 0 {
		return nil
	}

	var existing types.Array
	if obj, found := p.dict.Find("Contents"); found && obj != nil {
		o, err := p.doc.ctx.Dereference(obj)
		if err != nil {
			return err
		}
		switch c := o.(type) {
		case types.Array:
			existing = append(existing, c...)
		case nil:
		default:
			existing = types.Array{obj}
		}
	}

	var body bytes.Buffer
	if len(existing) > 0 {
		body.WriteString("Q\n")
	}
	body.WriteString("q\n" + p.transform() + "\n")
	body.Write(p.content.Bytes())
	body.WriteString("Q\n")

	post, err := p.doc.newContentStream(body.Bytes())
	if err != nil {
		return err
	}
	p.content.Reset()

	if len(existing) == 0 {
		p.dict["Contents"] = post
		return nil
	}

	pre, err := p.doc.newContentStream([]byte("q\n"))
	if err != nil {
		return err
	}
	contents := make(types.Array, 0, len(existing)+2)
	contents = append(contents, pre)
	contents = append(contents, existing...)
	contents = append(contents, post)
	p.dict["Contents"] = contents
	return nil
}
