package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/presenter"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the content cache",
		Long: `Manage the shared content cache under $HOME/.kash/cache (override with
KASH_CACHE_DIR or the cache.dir config key). Media downloads, fetched
resources, and API responses land here so repeated runs stay cheap.`,
	}
	cmd.AddCommand(newCacheInfoCommand())
	cmd.AddCommand(newCachePruneCommand())
	cmd.AddCommand(newCacheAddCommand())
	return cmd
}

func newCacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache size and disk usage",
		Run: func(cmd *cobra.Command, args []string) {
			runCacheInfoCommand(cmd.Context())
		},
	}
}

func runCacheInfoCommand(ctx context.Context) {
	store, err := openCache(ctx, nil)
	if err != nil {
		fatal(err, "failed to open cache")
	}
	defer store.Close()

	info, err := store.Stat(ctx)
	if err != nil {
		fatal(err, "failed to stat cache")
	}

	presenter.Section("Content cache")
	presenter.Info("Root:    " + info.Root)
	presenter.Info(fmt.Sprintf("Entries: %d", info.Entries))
	presenter.Info("Size:    " + humanBytes(info.TotalSize))
	if info.DiskTotal > 0 {
		presenter.Info(fmt.Sprintf("Disk:    %s free of %s",
			humanBytes(int64(info.DiskFree)), humanBytes(int64(info.DiskTotal))))
	}
}

func newCachePruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired and least-recently-used cache entries",
		Run: func(cmd *cobra.Command, args []string) {
			runCachePruneCommand(cmd.Context())
		},
	}
}

func runCachePruneCommand(ctx context.Context) {
	store, err := openCache(ctx, nil)
	if err != nil {
		fatal(err, "failed to open cache")
	}
	defer store.Close()

	result, err := store.Prune(ctx)
	if err != nil {
		fatal(err, "failed to prune cache")
	}
	presenter.Success(fmt.Sprintf("Removed %d entries, freed %s",
		result.EntriesRemoved, humanBytes(result.BytesFreed)))
}

type CacheAddConfig struct {
	Media string
}

func NewCacheAddConfig() *CacheAddConfig {
	return &CacheAddConfig{
		Media: string(mediatypes.TypeAudio),
	}
}

func getCacheAddConfigFromFlags(cmd *cobra.Command) *CacheAddConfig {
	config := NewCacheAddConfig()
	if media, err := cmd.Flags().GetString("media"); err == nil && media != "" {
		config.Media = media
	}
	return config
}

func (c *CacheAddConfig) mediaTypes() ([]mediatypes.Type, error) {
	var types []mediatypes.Type
	for _, part := range strings.Split(c.Media, ",") {
		switch t := mediatypes.Type(strings.TrimSpace(part)); t {
		case mediatypes.TypeAudio, mediatypes.TypeVideo:
			types = append(types, t)
		default:
			return nil, errors.Errorf("unknown media type %q (have: audio, video)", part)
		}
	}
	return types, nil
}

func newCacheAddCommand() *cobra.Command {
	defaults := NewCacheAddConfig()
	cmd := &cobra.Command{
		Use:   "add <url>...",
		Short: "Download URLs into the cache ahead of time",
		Long: `Download one or more URLs into the cache so later actions hit it
instead of the network. Media URLs download through their service;
other URLs are fetched directly. Failures are reported per URL and do
not stop the batch.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			config := getCacheAddConfigFromFlags(cmd)
			runCacheAddCommand(cmd.Context(), args, config)
		},
	}
	cmd.Flags().String("media", defaults.Media, "Media types to download for media URLs (audio, video, or audio,video)")
	return cmd
}

func runCacheAddCommand(ctx context.Context, urls []string, config *CacheAddConfig) {
	types, err := config.mediaTypes()
	if err != nil {
		fatal(err, "invalid --media value")
	}

	registry := newMediaRegistry()
	store, err := openCache(ctx, registry)
	if err != nil {
		fatal(err, "failed to open cache")
	}
	defer store.Close()

	var failures *multierror.Error
	cached := 0
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			break
		}
		var err error
		if registry.IsMediaURL(url) {
			_, err = store.CacheMedia(ctx, url, types)
		} else {
			_, err = store.CacheResource(ctx, url)
		}
		if err != nil {
			failures = multierror.Append(failures, errors.Wrapf(err, "caching %s", url))
			presenter.Warning("Failed: " + url)
			continue
		}
		cached++
		presenter.Info("Cached: " + url)
	}

	presenter.Success(fmt.Sprintf("Cached %d of %d URLs", cached, len(urls)))
	if err := failures.ErrorOrNil(); err != nil {
		fatal(err, "some downloads failed")
	}
}
