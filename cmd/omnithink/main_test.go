// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/omnithink/pkg/types"
)

func testCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "generate"}
	def := types.DefaultPipelineConfig()
	addRetrievalFlags(cmd, def)
	addGeneratorFlags(cmd, def)
	addMindMapFlags(cmd, def)
	return cmd
}

func TestDecodeConfigDefaults(t *testing.T) {
	v := viper.New()
	configureEnv(v)

	cfg, err := decodeConfig(v, testCommand().Flags())
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPipelineConfig(), cfg)
}

func TestDecodeConfigEnvReachesUnflaggedKeys(t *testing.T) {
	t.Setenv("OMNITHINK_MINDMAP_SEARCH_LEAVES", "false")
	t.Setenv("OMNITHINK_MINDMAP_ANCESTOR_CONTEXT", "false")
	t.Setenv("OMNITHINK_POLISH_MAX_TOKENS", "777")
	t.Setenv("OMNITHINK_GENERATOR_MAX_RETRIES", "5")
	t.Setenv("OMNITHINK_GENERATOR_API_KEY", "env-key")
	t.Setenv("OMNITHINK_GENERATOR_BREAKER_COOLDOWN", "45s")
	t.Setenv("OMNITHINK_RETRIEVAL_BREAKER_FAILURES", "9")
	t.Setenv("OMNITHINK_RETRIEVAL_USER_AGENT", "omnithink-test/1")
	t.Setenv("OMNITHINK_MINDMAP_MAX_DEPTH", "4")

	v := viper.New()
	configureEnv(v)

	cfg, err := decodeConfig(v, testCommand().Flags())
	require.NoError(t, err)

	assert.False(t, cfg.MindMap.SearchLeaves)
	assert.False(t, cfg.MindMap.AncestorContext)
	assert.Equal(t, 777, cfg.Polish.MaxTokens)
	assert.Equal(t, 5, cfg.Generator.MaxRetries)
	assert.Equal(t, "env-key", cfg.Generator.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Generator.BreakerCooldown)
	assert.Equal(t, uint32(9), cfg.Retrieval.BreakerFailures)
	assert.Equal(t, "omnithink-test/1", cfg.Retrieval.UserAgent, "inline HTTP settings sit under retrieval")
	assert.Equal(t, 4, cfg.MindMap.MaxDepth)
}

func TestDecodeConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omnithink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("polish:\n  passes: 2\n  target_words: 900\nmindmap:\n  max_depth: 1\n"), 0o644))
	t.Setenv("OMNITHINK_POLISH_PASSES", "3")
	t.Setenv("OMNITHINK_MINDMAP_MAX_DEPTH", "3")

	v := viper.New()
	configureEnv(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cmd := testCommand()
	require.NoError(t, cmd.Flags().Set("depth", "2"))

	cfg, err := decodeConfig(v, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, 900, cfg.Polish.TargetWords, "file beats defaults")
	assert.Equal(t, 3, cfg.Polish.Passes, "environment beats file")
	assert.Equal(t, 2, cfg.MindMap.MaxDepth, "flag beats environment")
}
