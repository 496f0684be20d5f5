// Package cli builds the cobra command trees for the kash binaries. The
// media shell and the base shell share one root; action subcommands come
// from the action registry, so the two differ only in which action
// packages their mains import.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/cache"
	"github.com/jlevy/kash-media/pkg/llm"
	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/media"
	"github.com/jlevy/kash-media/pkg/media/ytdlp"
	"github.com/jlevy/kash-media/pkg/presenter"
	"github.com/jlevy/kash-media/pkg/workspace"
)

// NewRootCommand builds the shared CLI root with the core workspace
// commands and one subcommand per registered action.
func NewRootCommand(name, short, long string) *cobra.Command {
	root := &cobra.Command{
		Use:   name,
		Short: short,
		Long:  long,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(1)
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
			setupLogging()
			startTracing(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			stopTracing()
		},
	}

	addGlobalFlags(root)
	addTracingFlags(root)

	root.AddCommand(newVersionCommand())
	root.AddCommand(newInitCommand())
	root.AddCommand(newListCommand())
	root.AddCommand(newShowCommand())
	root.AddCommand(newActionCommands()...)

	return root
}

// addGlobalFlags registers the persistent flags every binary carries and
// binds them to viper so command code reads config keys, not flags.
func addGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String("workspace", "", "Workspace directory (default: nearest enclosing workspace)")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json)")
	root.PersistentFlags().Bool("quiet", false, "Suppress progress output")

	viper.BindPFlag("workspace", root.PersistentFlags().Lookup("workspace"))
	viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", root.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", root.PersistentFlags().Lookup("quiet"))
}

// AddMediaCommands adds the media-kit command set: cache and channel
// management, Wikipedia lookup, gallery building, publishing, and the
// preview and MCP servers.
func AddMediaCommands(root *cobra.Command) {
	root.AddCommand(newCacheCommand())
	root.AddCommand(newChannelCommand())
	root.AddCommand(newWikiSearchCommand())
	root.AddCommand(newGalleryCommand())
	root.AddCommand(newPublishCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newMCPCommand())
}

// initConfig wires viper to the KASH_ environment and the config files:
// the global $HOME/.kash/config.yaml, then the workspace-local
// .kash/config.yaml on top of it.
func initConfig() {
	viper.SetEnvPrefix("KASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.kash")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()

	if ws, err := openWorkspace(); err == nil {
		local := filepath.Join(ws.Root(), workspace.MarkerDir, "config.yaml")
		if _, err := os.Stat(local); err == nil {
			viper.SetConfigFile(local)
			_ = viper.MergeInConfig()
		}
	}
}

func setupLogging() {
	if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
		presenter.Warning(fmt.Sprintf("Unknown log level %q, using info", viper.GetString("log_level")))
	}
	logger.SetLogFormat(viper.GetString("log_format"))
	presenter.SetQuiet(viper.GetBool("quiet"))
}

// openWorkspace opens the workspace named by the --workspace flag, or
// the nearest workspace at or above the current directory.
func openWorkspace() (*workspace.Workspace, error) {
	dir := viper.GetString("workspace")
	if dir == "" {
		dir = "."
	}
	return workspace.Open(dir)
}

// requireWorkspace is openWorkspace for commands that cannot run without
// one; it exits with a hint instead of returning an error.
func requireWorkspace() *workspace.Workspace {
	ws, err := openWorkspace()
	if err != nil {
		presenter.Error(err, "No workspace found. Run 'init' to create one")
		os.Exit(1)
	}
	return ws
}

// newMediaRegistry builds the media service registry, with the domain
// allowlist applied when one is configured.
func newMediaRegistry() *media.Registry {
	registry := media.DefaultRegistry(ytdlp.NewRunner())
	if path := viper.GetString("media.allowed_domains_file"); path != "" {
		registry.SetDomainFilter(media.NewDomainFilter(path))
	}
	return registry
}

// newRuntime assembles the services actions draw on. The LLM provider
// and transcriber are optional: when their API keys are missing they
// stay nil and only the actions that need them fail.
func newRuntime(ctx context.Context, ws *workspace.Workspace) (*actions.Runtime, func(), error) {
	registry := newMediaRegistry()

	store, err := openCache(ctx, registry)
	if err != nil {
		return nil, nil, err
	}

	rt := &actions.Runtime{
		Workspace: ws,
		Cache:     store,
		Media:     registry,
	}

	if provider, err := llm.FromConfig(ctx); err == nil {
		rt.Provider = provider
	} else {
		logger.G(ctx).WithError(err).Debug("LLM provider unavailable")
	}
	if transcriber, err := llm.NewWhisperTranscriber(); err == nil {
		rt.Transcriber = transcriber
	} else {
		logger.G(ctx).WithError(err).Debug("Transcriber unavailable")
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.G(ctx).WithError(err).Warn("Failed to close cache")
		}
	}
	return rt, cleanup, nil
}

// openCache opens the content cache using the configured root and size
// budget.
func openCache(ctx context.Context, registry *media.Registry) (*cache.Cache, error) {
	root := viper.GetString("cache.dir")
	if root == "" {
		var err error
		root, err = cache.DefaultRoot()
		if err != nil {
			return nil, err
		}
	}

	opts := []cache.Option{cache.WithRegistry(registry)}
	if maxBytes := viper.GetInt64("cache.max_bytes"); maxBytes > 0 {
		opts = append(opts, cache.WithMaxBytes(maxBytes))
	}

	store, err := cache.Open(ctx, root, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cache at %s", root)
	}
	return store, nil
}

// fatal reports a command failure and exits.
func fatal(err error, context string) {
	presenter.Error(err, context)
	os.Exit(1)
}

// humanBytes formats a byte count for display.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// shutdownTimeout bounds graceful server and tracer shutdowns.
const shutdownTimeout = 5 * time.Second
