package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/scanbox/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("json handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := newLogger(&buf, config.LogCfg{Level: "debug", Format: "json"})
		require.NoError(t, err)

		logger.Debug("feedback", "indicator", "alert")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "feedback", line["msg"])
		assert.Equal(t, "alert", line["indicator"])
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := newLogger(&buf, config.LogCfg{Level: "warn"})
		require.NoError(t, err)

		logger.Info("hidden")
		assert.Empty(t, buf.String())
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := newLogger(&bytes.Buffer{}, config.LogCfg{Level: "chatty"})
		assert.Error(t, err)
	})
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "scanbox ")
	assert.Contains(t, out.String(), "Commit:")
}
