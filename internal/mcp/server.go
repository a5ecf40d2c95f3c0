package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/a3tai/mcp-pdf-mapper/internal/config"
	"github.com/a3tai/mcp-pdf-mapper/internal/descriptions"
	"github.com/a3tai/mcp-pdf-mapper/internal/pdf"
)

// shutdownTimeout bounds the graceful shutdown of the SSE transport
const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
	}
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	fillTool := mcp.NewTool(
		descriptions.ToolFillTemplate,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolFillTemplate)),
		mcp.WithString("path",
			mcp.Description("Full path to the source PDF (use this or pdf_base64)"),
		),
		mcp.WithString("pdf_base64",
			mcp.Description("Base64-encoded source PDF (use this or path)"),
		),
		mcp.WithObject("template",
			mcp.Description("Field template: name and fields with key, type, page_number and rect. A JSON string is accepted too"),
		),
		mcp.WithString("template_path",
			mcp.Description("Path to a template .json file, as listed by pdf_search_directory (use this or template)"),
		),
		mcp.WithObject("data",
			mcp.Description("Values keyed by field key. A JSON string is accepted too"),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to write the filled PDF; when empty the PDF is returned as base64"),
		),
	)
	s.mcpServer.AddTool(fillTool, s.handlePDFFillTemplate)

	pageCountTool := mcp.NewTool(
		descriptions.ToolPageCount,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolPageCount)),
		mcp.WithString("path",
			mcp.Description("Full path to the PDF file (use this or pdf_base64)"),
		),
		mcp.WithString("pdf_base64",
			mcp.Description("Base64-encoded PDF (use this or path)"),
		),
	)
	s.mcpServer.AddTool(pageCountTool, s.handlePDFPageCount)

	searchTool := mcp.NewTool(
		descriptions.ToolSearchDirectory,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolSearchDirectory)),
		mcp.WithString("directory",
			mcp.Description("Directory path to search (uses default if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query for fuzzy matching"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handlePDFSearchDirectory)

	serverInfoTool := mcp.NewTool(
		descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolServerInfo)),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handlePDFServerInfo)
}

// Handler functions
func (s *Server) handlePDFFillTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	template, err := rawJSONArgument(args, "template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := rawJSONArgument(args, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFFillTemplateRequest{
		Path:         cast.ToString(args["path"]),
		PDFBase64:    cast.ToString(args["pdf_base64"]),
		Template:     template,
		TemplatePath: cast.ToString(args["template_path"]),
		Data:         data,
		OutputPath:   cast.ToString(args["output_path"]),
	}

	if s.config.IsDebug() {
		log.Printf("Fill request: path=%q base64=%d bytes output=%q", req.Path, len(req.PDFBase64), req.OutputPath)
	}

	result, err := s.pdfService.PDFFillTemplate(req)
	if err != nil {
		if s.config.IsDebug() {
			log.Printf("Fill failed: %v", err)
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.PDFBase64 != "" {
		payload, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}

	return mcp.NewToolResultText(s.formatPDFFillTemplateResult(result)), nil
}

func (s *Server) handlePDFPageCount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := pdf.PDFPageCountRequest{
		Path:      request.GetString("path", ""),
		PDFBase64: request.GetString("pdf_base64", ""),
	}

	result, err := s.pdfService.PDFPageCount(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := result.Path
	if name == "" {
		name = "document"
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF %s is valid and has %d page(s)", name, result.PageCount)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", name, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFSearchDirectory(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	directory := request.GetString("directory", "")
	if directory == "" {
		directory = s.config.PDFDirectory
	}

	req := pdf.PDFSearchDirectoryRequest{
		Directory: directory,
		Query:     request.GetString("query", ""),
	}

	result, err := s.pdfService.PDFSearchDirectory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.TotalCount == 0 {
		responseText = fmt.Sprintf("No PDF files or templates found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			responseText += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
	} else {
		responseText = s.formatPDFSearchDirectoryResult(result)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.PDFServerInfo(ctx, pdf.PDFServerInfoRequest{},
		s.config.ServerName, s.config.Version, s.config.PDFDirectory)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFServerInfoResult(result)), nil
}

// rawJSONArgument returns an object argument as raw JSON. Clients that send
// the object as a JSON string get it passed through unchanged.
func rawJSONArgument(args map[string]any, key string) (json.RawMessage, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	if str, ok := v.(string); ok {
		return json.RawMessage(strings.TrimSpace(str)), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s argument: %w", key, err)
	}
	return raw, nil
}

// Formatting methods
func (s *Server) formatPDFFillTemplateResult(result *pdf.PDFFillTemplateResult) string {
	text := fmt.Sprintf("Filled PDF written to: %s\n", result.OutputPath)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	text += fmt.Sprintf("Pages: %d\n", result.PageCount)
	text += fmt.Sprintf("Fields rendered: %d\n", result.FieldsRendered)

	if result.FieldsSkipped > 0 {
		text += fmt.Sprintf("Fields skipped: %d\n", result.FieldsSkipped)
		for _, skipped := range result.Skipped {
			text += fmt.Sprintf("  • %s (page %d): %s\n", skipped.Key, skipped.PageNumber, skipped.Reason)
		}
	}

	return text
}

func (s *Server) formatPDFSearchDirectoryResult(result *pdf.PDFSearchDirectoryResult) string {
	text := fmt.Sprintf("Found %d file(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}

	if len(result.Files) > 0 {
		text += "\nPDF files:\n"
		text += formatFileList(result.Files)
	}
	if len(result.Templates) > 0 {
		text += "\nTemplates:\n"
		text += formatFileList(result.Templates)
	}

	return text
}

func formatFileList(files []pdf.FileInfo) string {
	var text string
	for i, file := range files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
	}
	return text
}

func (s *Server) formatPDFServerInfoResult(result *pdf.PDFServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n\n", result.MaxFileSize/(1024*1024))

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in default directory\n\n"
	}

	d := result.RenderDefaults
	text += "🖋️  Rendering:\n"
	text += fmt.Sprintf("  Font: %s %gpt, color %s\n", d.FontName, d.FontSize, d.TextColor)
	text += fmt.Sprintf("  Strict geometry: %t\n", d.StrictGeometry)
	text += fmt.Sprintf("  Field types: %s\n", strings.Join(result.FieldTypes, ", "))
	text += fmt.Sprintf("  Fonts: %s\n\n", strings.Join(result.SupportedFonts, ", "))

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode and blocks until it stops
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server over stdin/stdout
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves the SSE transport on the configured address until
// ctx is cancelled.
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting PDF MCP server on %s (SSE)", addr)
		if err := sseServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve SSE: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down PDF MCP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sseServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("SSE server shutdown failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve SSE: %w", err)
		}
	case <-shutdownCtx.Done():
		log.Printf("SSE server did not stop within %s", shutdownTimeout)
	}
	return nil
}
