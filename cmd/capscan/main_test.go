package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/capscan/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRun_ConfigError(t *testing.T) {
	t.Parallel()

	// An HCL file with a syntax error fails while loading the configuration.
	invalidHCL := `
		request "lnL_gauss" {
			purpose = "likelihood"
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600), "failed to set up test file")

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"--log-level", "error", filePath})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load configuration")
	require.Contains(t, err.Error(), "failed to parse")
}

func TestRun_Scan(t *testing.T) {
	t.Parallel()

	config := `
models = ["Toy"]

request "lnL_gauss" {
  purpose = "likelihood"
}

scan {
  parameter "x" {
    min   = -1
    max   = 1
    steps = 3
  }
}
`
	filePath := filepath.Join(t.TempDir(), "scan.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(config), 0o600))

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"--log-format", "json", filePath})

	require.NoError(t, err)
	require.Contains(t, out.String(), `"msg":"Scan finished."`)
	require.Contains(t, out.String(), `"points":3`)
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err)
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}
