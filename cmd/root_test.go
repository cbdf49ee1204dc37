package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"ingest", "runs", "pois", "config"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "poi-ingest", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.RunE, "root command should run the ingestion")
}

func TestIngestFlags(t *testing.T) {
	for _, c := range []string{"root", "ingest"} {
		cmd := rootCmd
		if c == "ingest" {
			cmd = ingestCmd
		}
		require.NotNil(t, cmd.Flags().Lookup("source-url"), "%s should have --source-url flag", c)
		require.NotNil(t, cmd.Flags().Lookup("rejects"), "%s should have --rejects flag", c)
		assert.Contains(t, cmd.Flags().Lookup("rejects").Usage, "replacing it")
	}
}

func TestRunsListCommand_Flags(t *testing.T) {
	flag := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "runs list should have --limit flag")
	assert.Equal(t, "20", flag.DefValue)
	require.NotNil(t, runsListCmd.Flags().Lookup("status"), "runs list should have --status flag")
}

func TestPoisCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range poisCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["show"])
	assert.True(t, names["count"])
}
