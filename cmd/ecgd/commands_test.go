package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := rootCommand()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "backup", "restore", "status"}, names)

	cfg := root.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, defaultConfigPath, cfg.DefValue)
	assert.NotNil(t, root.PersistentFlags().Lookup("debug"))
}

func TestRestoreCommand_RejectsExtraArgs(t *testing.T) {
	root := rootCommand()
	root.SetArgs([]string{"restore", "a.json", "b.json"})
	assert.Error(t, root.Execute())
}

func TestStatusCommand_MissingConfig(t *testing.T) {
	root := rootCommand()
	root.SetArgs([]string{"status", "--config", "/nonexistent/ecgd.yml"})
	assert.Error(t, root.Execute())
}
