// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the omnithink CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/internal/secrets"
	"github.com/pdiddy/omnithink/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	logger      *zap.Logger
	credentials secrets.Credentials
	collector   *metrics.Collector
)

// rootCmd is the base command for the omnithink CLI.
var rootCmd = &cobra.Command{
	Use:   "omnithink",
	Short: "Generate long-form articles from a topic",
	Long: `omnithink writes a long-form article about a topic. It grows a mind map of
concepts by alternating web search and language-model expansion, turns the map
into an outline, writes every section from the evidence gathered for it, and
polishes the draft into one document.

Credentials are read from .secrets/ (serper-api-key, brave-api-key,
anthropic-api-key, openai-api-key, gemini-api-key) or from the usual
environment variables (SERPER_API_KEY, ANTHROPIC_API_KEY, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		config := zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Info("using config file", zap.String("path", used))
		}

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		loaded, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		credentials = secrets.Resolve(loaded, os.Getenv)
		if names := credentials.Names(); len(names) > 0 {
			logger.Debug("credentials found", zap.Strings("keys", names))
		}

		collector = metrics.NewCollector("omnithink")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./omnithink.yaml or ~/.config/omnithink/omnithink.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of API key files")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().String("metrics-file", "", "write run metrics in Prometheus text format to this file")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("omnithink")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "omnithink"))
		}
	}

	configureEnv(viper.GetViper())

	// A missing config file is fine; defaults and flags still apply.
	_ = viper.ReadInConfig()
}

// flagKeys maps command flags to configuration keys.
var flagKeys = map[string]string{
	"backends":            "retrieval.backends",
	"retrieval-timeout":   "retrieval.timeout",
	"email":               "retrieval.email",
	"provider":            "generator.provider",
	"model":               "generator.model",
	"base-url":            "generator.base_url",
	"temperature":         "generator.temperature",
	"generator-timeout":   "generator.timeout",
	"depth":               "mindmap.max_depth",
	"max-children":        "mindmap.max_children",
	"snippets":            "mindmap.snippets_per_node",
	"workers":             "mindmap.workers",
	"dedup-threshold":     "mindmap.dedup_threshold",
	"section-workers":     "article.workers",
	"top-k":               "article.top_k",
	"ranker":              "article.ranker",
	"fail-on-placeholder": "article.fail_on_placeholder",
	"passes":              "polish.passes",
	"target-words":        "polish.target_words",
	"output-dir":          "output.dir",
	"export-mindmap":      "output.export_mindmap",
	"metrics-file":        "output.metrics_file",
}

// configureEnv makes v read OMNITHINK_* variables, with "." in keys
// mapped to "_" (mindmap.max_depth -> OMNITHINK_MINDMAP_MAX_DEPTH).
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("OMNITHINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig builds the pipeline configuration: defaults, then the config
// file, then OMNITHINK_* environment variables, then flags of cmd. API keys
// come from the resolved credentials when not configured explicitly.
func loadConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	cfg, err := decodeConfig(viper.GetViper(), cmd.Flags())
	if err != nil {
		return cfg, err
	}

	if cfg.Retrieval.SerperAPIKey == "" {
		cfg.Retrieval.SerperAPIKey = credentials.Serper
	}
	if cfg.Retrieval.BraveAPIKey == "" {
		cfg.Retrieval.BraveAPIKey = credentials.Brave
	}
	if cfg.Generator.APIKey == "" {
		cfg.Generator.APIKey = credentials.ForProvider(cfg.Generator.Provider)
	}
	return cfg, nil
}

// decodeConfig binds the known flags of flags to v and decodes every
// configuration key. AutomaticEnv only answers for keys v already knows, so
// each key of the defaults is registered first.
func decodeConfig(v *viper.Viper, flags *pflag.FlagSet) (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	registerDefaults(v, "", reflect.ValueOf(cfg))

	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})

	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.Squash = true
	})
	if err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	return cfg, nil
}

// registerDefaults walks a config struct by its yaml tags and sets every
// leaf as a default of v. Inline structs share their parent's prefix.
func registerDefaults(v *viper.Viper, prefix string, rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		fv := rv.Field(i)
		switch {
		case f.Anonymous && strings.Contains(opts, "inline"):
			registerDefaults(v, prefix, fv)
		case name == "" || name == "-":
		case fv.Kind() == reflect.Struct:
			registerDefaults(v, prefix+name+".", fv)
		default:
			v.SetDefault(prefix+name, fv.Interface())
		}
	}
}

// writeMetrics writes the collector to the configured metrics file.
func writeMetrics(cfg types.PipelineConfig) {
	if cfg.Output.MetricsFile == "" {
		return
	}
	if err := collector.WriteTextfile(cfg.Output.MetricsFile); err != nil {
		logger.Warn("writing metrics failed", zap.String("path", cfg.Output.MetricsFile), zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
