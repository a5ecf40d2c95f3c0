package descriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetToolDescription(t *testing.T) {
	for _, name := range GetAllToolNames() {
		t.Run(name, func(t *testing.T) {
			desc := GetToolDescription(name)
			assert.NotEqual(t, "Tool description not available", desc)
			assert.Contains(t, desc, "**When to use:**")
		})
	}

	assert.Equal(t, "Tool description not available", GetToolDescription("pdf_read_file"))
}

func TestGetAllToolNames(t *testing.T) {
	assert.Equal(t, []string{
		ToolFillTemplate,
		ToolPageCount,
		ToolSearchDirectory,
		ToolServerInfo,
	}, GetAllToolNames())
}
