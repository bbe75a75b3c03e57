package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/capscan/internal/app"
	"github.com/specialistvlad/capscan/internal/registry"
	"github.com/stretchr/testify/require"
)

// result holds the outcome of one end-to-end run.
type result struct {
	App  *app.App
	Logs string
	Err  error
}

// runIntegrationTest writes files into a temporary directory, loads it as
// the scan configuration and runs the application against the compiled-in
// modules, or against modules when given.
func runIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) result {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	testApp, logs := app.SetupAppTest(t, app.Config{ConfigPaths: []string{dir}, RunID: t.Name()}, modules...)
	err := testApp.Run(context.Background())
	return result{App: testApp, Logs: logs.String(), Err: err}
}
