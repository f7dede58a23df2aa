package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/imgboot/internal/app"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600), "failed to set up test file")
	return path
}

func TestRun_ViewerPage(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	page := writeFile(t, dir, "index.html", `<html><body><div id="image-viewer"></div></body></html>`)
	out := filepath.Join(dir, "out.html")
	logs := &app.SafeBuffer{}

	// --- Act ---
	// No image source is configured, so the viewer fails after Ready. That is
	// reported, not fatal.
	err := run(logs, []string{"--out", out, page})

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, logs.String(), "Unhandled error.")
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(written), `id="image-viewer"`)
}

func TestRun_ConfigParseFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// An HCL file with a syntax error fails the validation phase.
	dir := t.TempDir()
	cfg := writeFile(t, dir, "app.hcl", `
		encoder {
			quality = 90
		// Missing closing brace here
	`)
	page := writeFile(t, dir, "index.html", `<html><body><div id="image-uploader"></div></body></html>`)
	out := filepath.Join(dir, "out.html")

	// --- Act ---
	runErr := run(&bytes.Buffer{}, []string{"--config", cfg, "--out", out, page})

	// --- Assert ---
	require.Error(t, runErr)
	require.Contains(t, runErr.Error(), "configuration validation failed")
	require.Contains(t, runErr.Error(), "failed to parse")
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(written), "Application failed to start")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
