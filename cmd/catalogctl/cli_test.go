package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "catalog.db")
	configPath = filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("store:\n  driver: sqlite\n  sqlite_path: %s\nlog:\n  level: error\n", dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))
	return configPath, dbPath
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLIWorkflow(t *testing.T) {
	configPath, _ := writeConfig(t)

	out, err := runCLI(t, configPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date")

	out, err = runCLI(t, configPath, "seed", "testdata/catalog.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "player/team links")

	out, err = runCLI(t, configPath, "resolve", "--set", "2024 Topps", "--year", "2024", "--player", "Mike Trout")
	require.NoError(t, err)
	assert.Contains(t, out, "Mike Trout (#")
	assert.Contains(t, out, "Fully resolved")

	out, err = runCLI(t, configPath, "resolve", "--set", "Bowman Draft", "--year", "2024", "--player", "Nobody Known")
	require.NoError(t, err)
	assert.Contains(t, out, "Needs review")

	out, err = runCLI(t, configPath, "bundles", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "No bundles awaiting review")
}

func TestResolveRequiresSetAndPlayer(t *testing.T) {
	configPath, _ := writeConfig(t)

	_, err := runCLI(t, configPath, "resolve", "--player", "Mike Trout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set")
}

func TestMigrateRefusesWhileLocked(t *testing.T) {
	configPath, dbPath := writeConfig(t)

	held := flock.New(defaultLockPath("sqlite", dbPath))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = held.Unlock() }()

	_, err = runCLI(t, configPath, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another migration")
}

func TestDefaultLockPath(t *testing.T) {
	assert.Equal(t, "/data/catalog.db.migrate.lock", defaultLockPath("sqlite", "/data/catalog.db"))
	assert.Equal(t, "/data/catalog.db.migrate.lock", defaultLockPath("", "/data/catalog.db"))
	assert.Equal(t, filepath.Join(os.TempDir(), "cardcatalog-migrate.lock"), defaultLockPath("postgres", "/data/catalog.db"))
}

func TestRenderTableWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	out := renderTable(&buf, []string{"Field", "Value"}, [][]string{{"set"}, {"series", "Base"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "+")
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "series")
	assert.Empty(t, renderTable(&buf, nil, nil, nil))
}
