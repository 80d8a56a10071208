package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MCTS_SIMULATIONS", "300")
	t.Setenv("MCTS_GOROUTINES", "2")
	t.Setenv("MCTS_SOLVER", "true")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Run("search finds the winning move", func(t *testing.T) {
		out, err := execute(t, "search", "--board", "XX. OO. ...")

		require.NoError(t, err)
		require.Contains(t, out, "move c3")
		require.Contains(t, out, "proven true")
	})

	t.Run("search rejects a malformed board", func(t *testing.T) {
		_, err := execute(t, "search", "--board", "XXX")
		require.Error(t, err)
	})

	t.Run("play", func(t *testing.T) {
		out, err := execute(t, "play")

		require.NoError(t, err)
		require.Contains(t, out, "1. P1")
	})

	t.Run("match", func(t *testing.T) {
		out, err := execute(t, "match", "--games", "2", "--opponent-simulations", "50")

		require.NoError(t, err)
		require.Contains(t, out, "agent 1:")
	})
}
