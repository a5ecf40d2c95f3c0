package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-mapper/internal/pdf/pdftest"
)

// rpc sends one JSON-RPC message through the MCP server and returns the
// encoded response.
func rpc(t *testing.T, server *Server, id int, method string, params any) map[string]any {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp := server.mcpServer.HandleMessage(context.Background(), msg)
	require.NotNil(t, resp)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Nil(t, decoded["error"], "rpc %s failed: %s", method, raw)
	return decoded
}

func initialize(t *testing.T, server *Server) {
	t.Helper()
	rpc(t, server, 1, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "integration-test", "version": "1.0.0"},
	})
}

func TestServerIntegration_ListTools(t *testing.T) {
	server, _ := newTestServer(t)
	initialize(t, server)

	resp := rpc(t, server, 2, "tools/list", map[string]any{})
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok)
	tools, ok := result["tools"].([]any)
	require.True(t, ok)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{
		"pdf_fill_template",
		"pdf_page_count",
		"pdf_search_directory",
		"pdf_server_info",
	}, names)
}

func TestServerIntegration_FillTemplate(t *testing.T) {
	server, dir := newTestServer(t)
	initialize(t, server)

	src := filepath.Join(dir, "lease.pdf")
	require.NoError(t, os.WriteFile(src, pdftest.Build(pdftest.Pages(2)...), 0o600))
	out := filepath.Join(dir, "out.pdf")

	var template map[string]any
	require.NoError(t, json.Unmarshal([]byte(testTemplate), &template))

	resp := rpc(t, server, 3, "tools/call", map[string]any{
		"name": "pdf_fill_template",
		"arguments": map[string]any{
			"path":        src,
			"template":    template,
			"data":        map[string]any{"tenant": "Grace Hopper", "pets": "yes"},
			"output_path": out,
		},
	})

	result, ok := resp["result"].(map[string]any)
	require.True(t, ok)
	assert.NotEqual(t, true, result["isError"], fmt.Sprint(result["content"]))

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, pdftest.PageCount(t, written))
	assert.Contains(t, pdftest.Contents(t, written, 1), "/FMHelvetica")
	assert.Contains(t, pdftest.Contents(t, written, 2), "/FMZapfDingbats")

	src2, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, pdftest.Build(pdftest.Pages(2)...), src2)
}

func TestServerIntegration_PageCount(t *testing.T) {
	server, dir := newTestServer(t)
	initialize(t, server)

	src := filepath.Join(dir, "four.pdf")
	require.NoError(t, os.WriteFile(src, pdftest.Build(pdftest.Pages(4)...), 0o600))

	resp := rpc(t, server, 4, "tools/call", map[string]any{
		"name":      "pdf_page_count",
		"arguments": map[string]any{"path": src},
	})

	raw, err := json.Marshal(resp["result"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "has 4 page(s)")
}
