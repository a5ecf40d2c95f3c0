package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	pdferrors "github.com/a3tai/mcp-pdf-mapper/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-mapper/internal/pdf/inject"
	"github.com/a3tai/mcp-pdf-mapper/internal/pdf/security"
)

const (
	filledSuffix     = "_filled.pdf"
	outputPerm       = 0o600
	maxFileSizeLimit = 1024 * 1024 * 1024 // 1GB
	maxTemplateSize  = 4 * 1024 * 1024    // 4MB
)

// Service fills PDF documents from templates and inspects source documents
type Service struct {
	maxFileSize   int64
	injector      *inject.Injector
	validator     *Validator
	search        *Search
	pathValidator *security.PathValidator
	info          *PDFServerInfo
}

// NewService creates a new PDF service rendering with opts
func NewService(maxFileSize int64, configuredDirectory string, opts inject.Options) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	injector, err := inject.NewInjector(opts)
	if err != nil {
		return nil, err
	}

	s := &Service{
		maxFileSize:   maxFileSize,
		injector:      injector,
		validator:     NewValidator(maxFileSize),
		search:        NewSearch(maxFileSize),
		pathValidator: pathValidator,
	}
	s.info = NewPDFServerInfo(s)
	return s, nil
}

// PDFFillTemplate renders req.Data into the source document at the locations
// defined by req.Template.
func (s *Service) PDFFillTemplate(req PDFFillTemplateRequest) (*PDFFillTemplateResult, error) {
	src, sourceName, err := s.loadSource(req.Path, req.PDFBase64)
	if err != nil {
		return nil, err
	}

	rawTemplate, err := s.loadTemplate(req.Template, req.TemplatePath)
	if err != nil {
		return nil, err
	}
	tpl, err := ParseTemplate(rawTemplate)
	if err != nil {
		return nil, err
	}
	data, err := ParseData(req.Data)
	if err != nil {
		return nil, err
	}

	report, err := s.injector.ProcessWithReport(src, tpl, data)
	if err != nil {
		return nil, err
	}

	result := &PDFFillTemplateResult{
		Filename:       OutputFilename(tpl.Name, sourceName),
		Size:           int64(len(report.Output)),
		PageCount:      report.PageCount,
		FieldsRendered: len(report.Rendered),
		FieldsSkipped:  len(report.Skipped),
		Rendered:       report.Rendered,
		Skipped:        report.Skipped,
	}

	if req.OutputPath == "" {
		result.PDFBase64 = base64.StdEncoding.EncodeToString(report.Output)
		return result, nil
	}

	outputPath, err := s.pathValidator.ValidateOutputPath(req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := os.WriteFile(outputPath, report.Output, outputPerm); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	result.OutputPath = outputPath
	result.Filename = filepath.Base(outputPath)
	return result, nil
}

// PDFPageCount reports whether the source opens as a PDF and how many pages
// it has. Undecodable documents yield Valid false, not an error.
func (s *Service) PDFPageCount(req PDFPageCountRequest) (*PDFPageCountResult, error) {
	result := &PDFPageCountResult{Path: req.Path}

	src, _, err := s.loadSource(req.Path, req.PDFBase64)
	if err != nil {
		if pdferrors.IsDecodeError(err) {
			result.Message = err.Error()
			return result, nil
		}
		return nil, err
	}

	count, err := s.injector.PageCount(src)
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // an unreadable document is a result, not a failure
	}

	result.Valid = true
	result.PageCount = count
	return result, nil
}

// PDFSearchDirectory lists source PDFs and template files
func (s *Service) PDFSearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	if req.Directory == "" {
		req.Directory = s.pathValidator.GetConfiguredDirectory()
	}

	if err := s.pathValidator.ValidateDirectory(req.Directory); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	return s.search.SearchDirectory(req)
}

// PDFServerInfo returns server information and usage guidance
func (s *Service) PDFServerInfo(ctx context.Context, _ PDFServerInfoRequest, serverName, version,
	defaultDirectory string,
) (*PDFServerInfoResult, error) {
	return s.info.GetServerInfo(ctx, serverName, version, defaultDirectory)
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// RenderOptions returns the options every fill request is rendered with
func (s *Service) RenderOptions() inject.Options {
	return s.injector.Options()
}

// ValidateConfiguration validates the service configuration
func (s *Service) ValidateConfiguration() error {
	if s.maxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be greater than 0")
	}
	if s.maxFileSize > maxFileSizeLimit {
		return fmt.Errorf("maxFileSize cannot exceed 1GB")
	}
	return nil
}

// loadSource returns the document bytes and a display name for the source.
// Unreadable PDFs on disk and undecodable base64 are decode errors; missing
// or conflicting inputs are validation errors.
func (s *Service) loadSource(path, encoded string) ([]byte, string, error) {
	switch {
	case path == "" && encoded == "":
		return nil, "", pdferrors.NewValidationError("either path or pdf_base64 is required")
	case path != "" && encoded != "":
		return nil, "", pdferrors.NewValidationError("path and pdf_base64 are mutually exclusive")
	}

	if encoded != "" {
		src, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return nil, "", pdferrors.NewDecodeError(fmt.Errorf("invalid base64 document: %w", err))
		}
		if err := s.validator.ValidateSize(int64(len(src))); err != nil {
			return nil, "", pdferrors.WrapError(pdferrors.ErrorTypeValidation, "document rejected", err)
		}
		return src, "", nil
	}

	if err := s.pathValidator.ValidatePath(path); err != nil {
		return nil, "", fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.validator.ValidateFile(path); err != nil {
		return nil, "", pdferrors.NewDecodeError(err).WithContext(path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return src, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), nil
}

// loadTemplate returns the inline template or reads it from a .json file
// inside the configured directory.
func (s *Service) loadTemplate(inline json.RawMessage, path string) (json.RawMessage, error) {
	if path == "" {
		return inline, nil
	}
	if !isEmptyJSON(inline) {
		return nil, pdferrors.NewValidationError("template and template_path are mutually exclusive")
	}
	if !isTemplateFile(path) {
		return nil, pdferrors.NewValidationError("template_path must name a .json file").WithContext(path)
	}
	if err := s.pathValidator.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeValidation, "cannot read template", err)
	}
	if info.Size() > maxTemplateSize {
		return nil, pdferrors.NewValidationError(
			fmt.Sprintf("template file too large: %d bytes (max %d)", info.Size(), maxTemplateSize)).WithContext(path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeValidation, "cannot read template", err)
	}
	return raw, nil
}

// ParseTemplate decodes a template definition
func ParseTemplate(raw json.RawMessage) (inject.Template, error) {
	var tpl inject.Template
	if isEmptyJSON(raw) {
		return tpl, pdferrors.NewValidationError("template is required")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&tpl); err != nil {
		return tpl, pdferrors.WrapError(pdferrors.ErrorTypeValidation, "invalid template JSON", err)
	}

	for i, field := range tpl.Fields {
		if field.Key == "" {
			return tpl, pdferrors.NewValidationError(fmt.Sprintf("template field %d has no key", i))
		}
	}
	return tpl, nil
}

// ParseData decodes the field values. Integral numbers become ints, other
// numbers floats and null leaves the field blank.
func ParseData(raw json.RawMessage) (inject.DataMap, error) {
	data := inject.DataMap{}
	if isEmptyJSON(raw) {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeValidation, "invalid data JSON", err)
	}
	return data, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// OutputFilename names a filled document after its template, falling back to
// the source file name.
func OutputFilename(templateName, sourceName string) string {
	base := sanitizeFilename(templateName)
	if base == "" {
		base = sanitizeFilename(sourceName)
	}
	if base == "" {
		base = "document"
	}
	return base + filledSuffix
}

func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '.':
			return r
		case unicode.IsSpace(r), r == '_':
			return '_'
		default:
			return -1
		}
	}, strings.TrimSpace(name))
	return strings.Trim(name, "._")
}
