package pdf

import (
	"encoding/json"

	"github.com/a3tai/mcp-pdf-mapper/internal/pdf/inject"
)

// FileInfo represents information about a file in the PDF directory
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// PDFFillTemplateRequest represents a request to fill a PDF from a template.
// Exactly one of Path and PDFBase64 names the source document, and exactly
// one of Template and TemplatePath supplies the template.
type PDFFillTemplateRequest struct {
	Path         string          `json:"path,omitempty"`
	PDFBase64    string          `json:"pdf_base64,omitempty"`
	Template     json.RawMessage `json:"template,omitempty"`
	TemplatePath string          `json:"template_path,omitempty"`
	Data         json.RawMessage `json:"data"`
	OutputPath   string          `json:"output_path,omitempty"`
}

// PDFPageCountRequest represents a request to validate a PDF and count its pages
type PDFPageCountRequest struct {
	Path      string `json:"path,omitempty"`
	PDFBase64 string `json:"pdf_base64,omitempty"`
}

// PDFSearchDirectoryRequest represents a request to list PDFs and templates in a directory
type PDFSearchDirectoryRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
}

// PDFServerInfoRequest represents a request for server information
type PDFServerInfoRequest struct{}

// Response Types

// PDFFillTemplateResult represents the result of a fill operation. The filled
// document is either written to OutputPath or returned as PDFBase64.
type PDFFillTemplateResult struct {
	Filename       string                `json:"filename"`
	OutputPath     string                `json:"output_path,omitempty"`
	PDFBase64      string                `json:"pdf_base64,omitempty"`
	Size           int64                 `json:"size"`
	PageCount      int                   `json:"page_count"`
	FieldsRendered int                   `json:"fields_rendered"`
	FieldsSkipped  int                   `json:"fields_skipped"`
	Rendered       []string              `json:"rendered"`
	Skipped        []inject.SkippedField `json:"skipped,omitempty"`
}

// PDFPageCountResult represents the result of a page count operation. An
// unreadable document is reported with Valid false rather than an error.
type PDFPageCountResult struct {
	Path      string `json:"path,omitempty"`
	Valid     bool   `json:"valid"`
	PageCount int    `json:"page_count,omitempty"`
	Message   string `json:"message,omitempty"`
}

// PDFSearchDirectoryResult represents the result of a directory search
type PDFSearchDirectoryResult struct {
	Files       []FileInfo `json:"files"`
	Templates   []FileInfo `json:"templates"`
	TotalCount  int        `json:"total_count"`
	Directory   string     `json:"directory"`
	SearchQuery string     `json:"search_query,omitempty"`
}

// RenderDefaults describes the rendering options the server applies
type RenderDefaults struct {
	FontName       string  `json:"font_name"`
	FontSize       float64 `json:"font_size"`
	TextColor      string  `json:"text_color"`
	StrictGeometry bool    `json:"strict_geometry"`
}

// PDFServerInfoResult represents server information and usage guidance
type PDFServerInfoResult struct {
	ServerName        string         `json:"server_name"`
	Version           string         `json:"version"`
	DefaultDirectory  string         `json:"default_directory"`
	MaxFileSize       int64          `json:"max_file_size"`
	AvailableTools    []ToolInfo     `json:"available_tools"`
	DirectoryContents []FileInfo     `json:"directory_contents"`
	UsageGuidance     string         `json:"usage_guidance"`
	RenderDefaults    RenderDefaults `json:"render_defaults"`
	SupportedFonts    []string       `json:"supported_fonts"`
	FieldTypes        []string       `json:"field_types"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}
