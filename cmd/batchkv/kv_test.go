package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func writeMemoryConfig(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: memory\n"), 0o644))

	viper.Reset()
	configPath = path
	timeout = 30
	t.Cleanup(func() {
		configPath = ""
		dataDir = ""
	})
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestDelReportsSubmittedKeyCount(t *testing.T) {
	writeMemoryConfig(t)

	// Neither key exists. Deletes are unconditional, so the count is the
	// number of keys submitted.
	out := runCommand(t, delCmd(), "ghost-1", "ghost-2")
	require.Equal(t, "(integer) 2\n", out)
}

func TestSetPrintsOK(t *testing.T) {
	writeMemoryConfig(t)

	out := runCommand(t, setCmd(), "a", "1")
	require.Equal(t, "OK\n", out)
}

func TestGetAbsentPrintsNil(t *testing.T) {
	writeMemoryConfig(t)

	out := runCommand(t, getCmd(), "missing")
	require.Equal(t, "(nil)\n", out)
}
