package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/imgboot/internal/dispatch"
)

const uploaderPage = `<!doctype html>
<html><head><title>Upload</title></head>
<body><main><form id="image-uploader"></form></main></body></html>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestApp_RunReady(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	cfgPath := writeFile(t, "app.hcl", `
name = "gallery"
encoder {
  quality = 90
}
rule "sane_quality" {
  expr = "encoder.quality <= 95"
}
`)
	out := filepath.Join(t.TempDir(), "out.html")
	a, logs := SetupAppTest(t, &Config{ConfigPath: cfgPath, OutPath: out}, uploaderPage)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, Ready, a.Bootstrapper().State())
	assert.Equal(t, dispatch.Uploader, a.Bootstrapper().Outcome().Context)
	assert.Contains(t, logs.String(), "Application ready.")

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), `id="image-uploader"`)
	assert.NotContains(t, string(written), "boot-error")
}

func TestApp_RunFailureWritesFallbackPage(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	cfgPath := writeFile(t, "app.hcl", `
encoder {
  quality = 99
}
rule "sane_quality" {
  expr    = "encoder.quality <= 95"
  message = "quality above 95 wastes bandwidth"
}
`)
	out := filepath.Join(t.TempDir(), "out.html")
	a, _ := SetupAppTest(t, &Config{ConfigPath: cfgPath, OutPath: out}, uploaderPage)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.ErrorIs(t, err, ErrConfigValidation)
	written, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	page := string(written)
	assert.Contains(t, page, `<div class="boot-error"><h1>Application failed to start</h1>`)
	assert.Contains(t, page, "quality above 95 wastes bandwidth")
	assert.NotContains(t, page, `id="image-uploader"`)
}

func TestApp_ScriptsOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "units"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "units", "imaging.js"), []byte("var Imaging = {};"), 0600))
	// analyzer.js is missing, so the load stops at the classifier unit.

	a, _ := SetupAppTest(t, &Config{ScriptsPath: dir}, uploaderPage)

	err := a.Run(context.Background())

	require.ErrorIs(t, err, ErrLoad)
	assert.Contains(t, a.Page().String(), "units/analyzer.js")
}

func TestNewApp_MissingPage(t *testing.T) {
	t.Parallel()

	_, err := NewApp(&SafeBuffer{}, &Config{PagePath: filepath.Join(t.TempDir(), "none.html")})

	require.ErrorContains(t, err, "failed to open page")
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a, _ := SetupAppTest(t, &Config{}, uploaderPage)
	probe := func() (int, string) {
		rec := httptest.NewRecorder()
		a.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		return rec.Code, rec.Body.String()
	}

	// --- Act / Assert ---
	code, body := probe()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "idle\n", body)

	require.NoError(t, a.Run(context.Background()))
	code, body = probe()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK\n", body)
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{PagePath: "index.html"}, ""},
		{"missing page", Config{}, "PagePath"},
		{"bad port", Config{PagePath: "index.html", HealthcheckPort: 70000}, "HealthcheckPort"},
		{"relative report url", Config{PagePath: "index.html", ReportURL: "/collector"}, "ReportURL"},
		{"report url", Config{PagePath: "index.html", ReportURL: "http://localhost:3000/socket.io/"}, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cfg, *cfg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warn").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("verbose").String())
}
