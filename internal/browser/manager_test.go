// internal/browser/manager_test.go
package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/config"
)

func flagValue(flags []allocatorFlag, name string) (interface{}, bool) {
	var (
		v     interface{}
		found bool
	)
	// Later flags win, as they do in chromedp.
	for _, f := range flags {
		if f.name == name {
			v, found = f.value, true
		}
	}
	return v, found
}

func TestAllocatorFlags(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{Headless: true})
		v, ok := flagValue(flags, "headless")
		require.True(t, ok)
		assert.Equal(t, true, v)
		v, _ = flagValue(flags, "ignore-certificate-errors")
		assert.Equal(t, false, v)
		_, ok = flagValue(flags, "window-size")
		assert.False(t, ok, "no viewport means no window-size flag")
	})

	t.Run("Viewport", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{Viewport: config.ViewportConfig{Width: 390, Height: 844}})
		v, ok := flagValue(flags, "window-size")
		require.True(t, ok)
		assert.Equal(t, "390,844", v)
	})

	t.Run("Custom Args", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{
			Args: []string{"--lang=de-DE", "--mute-audio", "--"},
		})
		v, _ := flagValue(flags, "lang")
		assert.Equal(t, "de-DE", v)
		v, _ = flagValue(flags, "mute-audio")
		assert.Equal(t, true, v)
		for _, f := range flags {
			assert.NotEmpty(t, f.name)
		}
	})

	t.Run("Container Flags", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{})
		_, ok := flagValue(flags, "no-sandbox")
		assert.Equal(t, runtime.GOOS == "linux", ok)
	})

	t.Run("Options Include Exec Path", func(t *testing.T) {
		base := buildAllocatorOptions(config.BrowserConfig{})
		withPath := buildAllocatorOptions(config.BrowserConfig{ExecPath: "/usr/bin/chromium"})
		assert.Len(t, withPath, len(base)+1)
	})
}

func TestResolveTarget(t *testing.T) {
	t.Run("URL Unchanged", func(t *testing.T) {
		for _, in := range []string{"http://localhost:8080/chat", "https://example.com", "file:///tmp/index.html"} {
			got, err := ResolveTarget(in)
			require.NoError(t, err)
			assert.Equal(t, in, got)
		}
	})

	t.Run("Path Becomes File URL", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "index.html")
		require.NoError(t, os.WriteFile(path, []byte("<html></html>"), 0o644))

		got, err := ResolveTarget(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "file://"), got)
		assert.True(t, strings.HasSuffix(got, "/index.html"), got)
	})

	t.Run("Relative Path Is Made Absolute", func(t *testing.T) {
		got, err := ResolveTarget("index.html")
		require.NoError(t, err)
		wd, _ := os.Getwd()
		assert.Contains(t, got, filepath.ToSlash(wd))
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ResolveTarget("")
		assert.Error(t, err)
	})
}

func TestCallScript(t *testing.T) {
	script, err := callScript("(a, b) => a + b", `it's "quoted"`, 3)
	require.NoError(t, err)
	assert.Equal(t, `((a, b) => a + b)("it's \"quoted\"", 3)`, script)

	_, err = callScript("(x) => x", func() {})
	assert.Error(t, err)
}

func TestClosedPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	closes := 0
	p := newPage(ctx, cancel, zaptest.NewLogger(t), config.BrowserConfig{}, func() { closes++ })
	p.isClosed = true

	_, err := p.IDs(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemas.ErrCollaboratorUnavailable))

	// Already closed: no second callback.
	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, 0, closes)
	cancel()
}

// TestManagerIntegration drives a real browser. It only runs when one is
// available, e.g. UICONFORM_CHROME=/usr/bin/chromium.
func TestManagerIntegration(t *testing.T) {
	execPath := os.Getenv("UICONFORM_CHROME")
	if execPath == "" || testing.Short() {
		t.Skip("set UICONFORM_CHROME to run browser integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := config.NewDefaultConfig().Browser()
	cfg.ExecPath = execPath
	m, err := NewManager(ctx, zaptest.NewLogger(t), cfg)
	require.NoError(t, err)
	defer m.Close(context.Background())

	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body>
<div id="a" class="message">one</div><div id="a" class="message">two</div>
<script>window.simulateInsertOnce = () => { document.body.appendChild(document.createElement("hr")); };</script>
</body></html>`), 0o644))
	target, err := ResolveTarget(path)
	require.NoError(t, err)

	page, err := m.NewPage(ctx)
	require.NoError(t, err)
	defer page.Close(context.Background())

	require.NoError(t, page.Navigate(ctx, target))
	rects, err := page.Rects(ctx, ".message")
	require.NoError(t, err)
	assert.Len(t, rects, 2)

	ids, err := page.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a"}, ids)

	require.NoError(t, page.InvokeHook(ctx, "simulateInsertOnce"))
	err = page.InvokeHook(ctx, "missingHook")
	assert.ErrorIs(t, err, schemas.ErrPreconditionNotMet)

	png, err := page.Screenshot(ctx)
	require.NoError(t, err)
	assert.True(t, len(png) > 8)
}
