package descriptions

import "sort"

// Tool names exposed over MCP
const (
	ToolFillTemplate    = "pdf_fill_template"
	ToolPageCount       = "pdf_page_count"
	ToolSearchDirectory = "pdf_search_directory"
	ToolServerInfo      = "pdf_server_info"
)

const (
	PDFFillTemplateDescription = `Fill a PDF by drawing values at the field locations of a template.

**When to use:** You have a flat (non-interactive) PDF form, a template that marks where each field sits on which page, and the values to put there.

**Template format:** {"name": "w9", "fields": [{"key": "full_name", "type": "text", "page_number": 1, "rect": {"x": 0.1, "y": 0.2, "w": 0.3, "h": 0.03}}]}
Rects are fractions of the page width and height, measured from the top-left corner of the page as displayed. Field types are "text", "date" and "checkbox".
Pass the template inline as "template", or name a template .json file in the PDF directory with "template_path".

**Data format:** {"full_name": "Jane Doe", "dob": "1990-04-01", "agree": true}
• text: the value as text, wrapped to the field width and clipped to the field
• date: ISO-8601 dates are written as MM/DD/YYYY; other text is written unchanged
• checkbox: true, non-zero numbers and non-empty strings other than "false"/"0" draw a check mark; false values draw an empty box
Missing, null and empty-string values leave the field untouched.

**Examples:**
• "Fill intake.pdf with the patient record using intake.template.json"
• "Fill the uploaded contract (base64) and save it as contracts/acme_filled.pdf"

**Best practices:** Run pdf_page_count first when the template page count may not match the document. Fields on pages the document does not have are skipped and reported.`

	PDFPageCountDescription = `Check that a PDF opens and report its number of pages.

**When to use:** Before filling, to confirm a document is readable and that the template's page numbers fit it.

**Why it's useful:** Unreadable documents are reported as {"valid": false} with the reason instead of failing the call.

**Examples:**
• "How many pages does invoices/2024-001.pdf have?"
• "Is this uploaded file a PDF I can fill?"`

	PDFSearchDirectoryDescription = `Find source PDFs and template files in the configured directory.

**When to use:** To discover which documents and JSON templates are available before filling.

**Why it's useful:** Supports fuzzy, word-based matching on file names, so "blank 2024" finds "W-9_2024_blank.pdf".

**Examples:**
• "List all PDFs and templates"
• "Find templates for the intake form"`

	PDFServerInfoDescription = `Get server information, rendering defaults, available tools and directory contents.

**When to use:** At the start of a session to learn the server's capabilities, configured directory and size limits.

**Examples:**
• "What can this PDF server do?"
• "Which fonts can the mapper render with?"`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolFillTemplate:    PDFFillTemplateDescription,
	ToolPageCount:       PDFPageCountDescription,
	ToolSearchDirectory: PDFSearchDirectoryDescription,
	ToolServerInfo:      PDFServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
