package pdf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-mapper/internal/pdf/inject"
)

func TestDirectoryCache(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cache := NewDirectoryCache(time.Minute)
	cache.now = func() time.Time { return now }

	_, ok := cache.Get("/docs")
	assert.False(t, ok)

	files := []FileInfo{{Name: "a.pdf"}}
	cache.Set("/docs", files)

	got, ok := cache.Get("/docs")
	require.True(t, ok)
	assert.Equal(t, files, got)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("/docs")
	assert.False(t, ok, "entry expired")
	assert.Equal(t, 1, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestServerInfo_CachesDirectoryListing(t *testing.T) {
	svc, dir := newTestService(t)
	writePDF(t, dir, "first.pdf", 1)

	info := NewPDFServerInfo(svc)
	result, err := info.GetServerInfo(context.Background(), "srv", "1", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"first.pdf"}, names(result.DirectoryContents))

	writePDF(t, dir, "second.pdf", 1)
	result, err = info.GetServerInfo(context.Background(), "srv", "1", dir)
	require.NoError(t, err)
	assert.Len(t, result.DirectoryContents, 1, "listing served from cache")
}

func TestServerInfo_InvalidDirectoryFallsBack(t *testing.T) {
	svc, dir := newTestService(t)

	result, err := svc.PDFServerInfo(context.Background(), PDFServerInfoRequest{}, "srv", "1", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, dir, result.DefaultDirectory)
	assert.Empty(t, result.DirectoryContents)
}

func TestServerInfo_RenderDefaults(t *testing.T) {
	opts := inject.DefaultOptions()
	opts.FontName = "tiro"
	opts.TextColor.B = 1
	opts.StrictGeometry = true

	svc, err := NewService(1024*1024, t.TempDir(), opts)
	require.NoError(t, err)

	result, err := svc.PDFServerInfo(context.Background(), PDFServerInfoRequest{}, "srv", "1", "")
	require.NoError(t, err)
	assert.Equal(t, RenderDefaults{FontName: "Times-Roman", FontSize: 11, TextColor: "#0000FF", StrictGeometry: true},
		result.RenderDefaults)
}
