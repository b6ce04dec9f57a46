package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sh03m2a5h/filesession-go/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestOfflineCommands(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "sessions")
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a1b2c3d4"), []byte(`{"user":"ada","count":0}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "e5f6a7b8"), []byte(`{}`), 0600))

	t.Setenv("FILESESSION_SESSION_STORE", "file")
	t.Setenv("FILESESSION_SESSION_ROOT_PATH", root)

	out, err := execute(t, "list", "--config=-")
	require.NoError(t, err)
	assert.Contains(t, out, "a1b2c3d4\n")
	assert.Contains(t, out, "e5f6a7b8\n")

	out, err = execute(t, "inspect", "a1b2c3d4", "--config=-")
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":"ada","count":0}`, out)

	_, err = execute(t, "remove", "e5f6a7b8", "--config=-")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "e5f6a7b8"))

	_, err = execute(t, "inspect", "../escape", "--config=-")
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	configFile = "-"
	assert.Equal(t, "-", configPath())

	configFile = "/etc/filesession/custom.yaml"
	assert.Equal(t, "/etc/filesession/custom.yaml", configPath())
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, version.Get().String()+"\n", out)
}
