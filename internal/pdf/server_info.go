package pdf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/a3tai/mcp-pdf-mapper/internal/descriptions"
	"github.com/a3tai/mcp-pdf-mapper/internal/pdf/inject"
)

const (
	directoryCacheTTL = 5 * time.Minute
	scanFileLimit     = 100
	scanTimeLimit     = 3 * time.Second
)

// DirectoryCache provides TTL-based caching for directory listings
type DirectoryCache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

type cacheEntry struct {
	files      []FileInfo
	lastUpdate time.Time
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached listing for path if it has not expired
func (c *DirectoryCache) Get(path string) ([]FileInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[path]
	if !exists || c.now().Sub(entry.lastUpdate) > c.ttl {
		return nil, false
	}
	return entry.files, true
}

// Set stores a directory listing
func (c *DirectoryCache) Set(path string, files []FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = cacheEntry{files: files, lastUpdate: c.now()}
}

// Clear removes expired entries from cache
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for path, entry := range c.entries {
		if now.Sub(entry.lastUpdate) > c.ttl {
			delete(c.entries, path)
		}
	}
}

// Len returns the number of cached listings, expired or not
func (c *DirectoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// PDFServerInfo assembles server information with a cached directory scan
type PDFServerInfo struct {
	cache   *DirectoryCache
	service *Service
}

// NewPDFServerInfo creates a new server info handler
func NewPDFServerInfo(service *Service) *PDFServerInfo {
	return &PDFServerInfo{
		cache:   NewDirectoryCache(directoryCacheTTL),
		service: service,
	}
}

// GetServerInfo returns server information. The directory listing is bounded
// by scanFileLimit and scanTimeLimit; a scan that fails or times out yields
// an empty listing.
func (p *PDFServerInfo) GetServerInfo(ctx context.Context, serverName, version,
	defaultDirectory string,
) (*PDFServerInfoResult, error) {
	validatedDir := defaultDirectory
	if err := p.service.pathValidator.ValidateDirectory(defaultDirectory); err != nil {
		validatedDir = p.service.pathValidator.GetConfiguredDirectory()
	}

	files, ok := p.cache.Get(validatedDir)
	if !ok {
		files = p.scan(ctx, validatedDir)
		p.cache.Set(validatedDir, files)
	}

	opts := p.service.RenderOptions()
	return &PDFServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  validatedDir,
		MaxFileSize:       p.service.maxFileSize,
		AvailableTools:    availableTools(),
		DirectoryContents: files,
		UsageGuidance:     p.usageGuidance(),
		RenderDefaults: RenderDefaults{
			FontName:       opts.FontName,
			FontSize:       opts.FontSize,
			TextColor:      hexColor(opts),
			StrictGeometry: opts.StrictGeometry,
		},
		SupportedFonts: inject.SupportedFonts(),
		FieldTypes: []string{
			string(inject.FieldText),
			string(inject.FieldDate),
			string(inject.FieldCheckbox),
		},
	}, nil
}

func (p *PDFServerInfo) scan(ctx context.Context, directory string) []FileInfo {
	scanCtx, cancel := context.WithTimeout(ctx, scanTimeLimit)
	defer cancel()

	resultChan := make(chan []FileInfo, 1)
	go func() {
		files, err := p.service.search.FindPDFsInDirectoryLimited(directory, scanFileLimit)
		if err != nil {
			files = nil
		}
		resultChan <- files
	}()

	select {
	case files := <-resultChan:
		if files == nil {
			return []FileInfo{}
		}
		return files
	case <-scanCtx.Done():
		return []FileInfo{}
	}
}

// ClearCache clears expired cache entries
func (p *PDFServerInfo) ClearCache() {
	p.cache.Clear()
}

func hexColor(opts inject.Options) string {
	c := opts.TextColor
	return fmt.Sprintf("#%02X%02X%02X",
		uint8(c.R*255+0.5), uint8(c.G*255+0.5), uint8(c.B*255+0.5))
}

func availableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        descriptions.ToolFillTemplate,
			Description: descriptions.GetToolDescription(descriptions.ToolFillTemplate),
			Usage:       "Use this tool to draw values onto a PDF at the locations a template defines.",
			Parameters: "path or pdf_base64 (one required): source document, " +
				"template or template_path (one required): template JSON or a .json file in the directory, " +
				"data: values JSON keyed by field key, output_path (optional): where to write the result",
		},
		{
			Name:        descriptions.ToolPageCount,
			Description: descriptions.GetToolDescription(descriptions.ToolPageCount),
			Usage:       "Use this tool to check a document opens and to read its page count.",
			Parameters:  "path or pdf_base64 (one required): the document to inspect",
		},
		{
			Name:        descriptions.ToolSearchDirectory,
			Description: descriptions.GetToolDescription(descriptions.ToolSearchDirectory),
			Usage:       "Use this tool to find source PDFs and template files.",
			Parameters: "directory (optional): directory to search (uses default if empty), " +
				"query (optional): search query for fuzzy matching",
		},
		{
			Name:        descriptions.ToolServerInfo,
			Description: descriptions.GetToolDescription(descriptions.ToolServerInfo),
			Usage:       "Use this tool to learn the server's defaults, limits and directory contents.",
			Parameters:  "none",
		},
	}
}

func (p *PDFServerInfo) usageGuidance() string {
	maxFileSizeMB := p.service.maxFileSize / (1024 * 1024)

	return fmt.Sprintf(`PDF Mapper Usage Guide:

1. DISCOVER:
   - Use 'pdf_search_directory' to find source PDFs and JSON templates
   - Use 'pdf_server_info' to see rendering defaults and limits

2. CHECK THE DOCUMENT:
   - Use 'pdf_page_count' to confirm the PDF opens and has the pages the template expects

3. FILL:
   - Use 'pdf_fill_template' with the document, the template and the data
   - Rects are fractions of the displayed page, origin top-left
   - Blank values and fields on missing pages are skipped and reported
   - Without output_path the filled PDF is returned as base64

IMPORTANT NOTES:
- Paths must lie inside the configured directory
- The server accepts documents up to %dMB
- Text must be representable in WinAnsi (Western European) encoding
- Existing form fields are not filled; values are drawn onto the page`, maxFileSizeMB)
}
