package cli

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/presenter"
	"github.com/jlevy/kash-media/pkg/types/item"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

type ChannelConfig struct {
	Save  bool
	Limit int
}

func NewChannelConfig() *ChannelConfig {
	return &ChannelConfig{}
}

func getChannelConfigFromFlags(cmd *cobra.Command) *ChannelConfig {
	config := NewChannelConfig()
	if save, err := cmd.Flags().GetBool("save"); err == nil {
		config.Save = save
	}
	if limit, err := cmd.Flags().GetInt("limit"); err == nil {
		config.Limit = limit
	}
	return config
}

func newChannelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel <url>",
		Short: "List the items of a channel, playlist, or show",
		Long: `List every item of a channel, playlist, or podcast show URL. With
--save, each item is also stored in the workspace as a resource item
carrying its metadata; failures are reported per item and do not stop
the batch.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			config := getChannelConfigFromFlags(cmd)
			runChannelCommand(cmd.Context(), args[0], config)
		},
	}
	cmd.Flags().Bool("save", false, "Save each item as a workspace resource")
	cmd.Flags().Int("limit", 0, "Stop after this many items (0 for all)")
	return cmd
}

func runChannelCommand(ctx context.Context, url string, config *ChannelConfig) {
	registry := newMediaRegistry()

	svc, err := registry.ServiceFor(url)
	if err != nil {
		fatal(err, "URL is not a recognized media service")
	}
	if err := registry.CheckURLAllowed(url); err != nil {
		fatal(err, "URL is not allowed")
	}

	entries, err := svc.ListChannelItems(ctx, url)
	if err != nil {
		fatal(err, "failed to list channel items")
	}
	if config.Limit > 0 && len(entries) > config.Limit {
		entries = entries[:config.Limit]
	}
	if len(entries) == 0 {
		presenter.Info("No items found")
		return
	}

	for _, meta := range entries {
		presenter.Info(formatChannelEntry(meta))
	}

	if !config.Save {
		presenter.Success(fmt.Sprintf("Listed %d items", len(entries)))
		return
	}

	ws := requireWorkspace()
	var failures *multierror.Error
	saved := 0
	for _, meta := range entries {
		if err := ctx.Err(); err != nil {
			break
		}
		if _, err := saveChannelEntry(ws.Save, meta); err != nil {
			failures = multierror.Append(failures, errors.Wrapf(err, "saving %s", meta.URL))
			presenter.Warning("Failed: " + meta.URL)
			continue
		}
		saved++
	}

	presenter.Success(fmt.Sprintf("Saved %d of %d items", saved, len(entries)))
	if err := failures.ErrorOrNil(); err != nil {
		fatal(err, "some items failed to save")
	}
}

func formatChannelEntry(meta *mediatypes.Metadata) string {
	line := meta.Title
	if line == "" {
		line = meta.URL
	}
	if meta.Duration > 0 {
		line += fmt.Sprintf(" (%s)", mediatypes.FormatTimestamp(meta.Duration))
	}
	return line
}

// saveChannelEntry stores one channel entry as a resource item carrying
// the listing metadata.
func saveChannelEntry(save func(*item.Item) (string, error), meta *mediatypes.Metadata) (string, error) {
	it := item.FromURL(meta.URL)
	it.Title = meta.Title
	it.Description = meta.Description
	it.SetMetadata("media_id", meta.MediaID)
	it.SetMetadata("media_service", meta.MediaService)
	if meta.ThumbnailURL != "" {
		it.SetMetadata("thumbnail_url", meta.ThumbnailURL)
	}
	if meta.Duration > 0 {
		it.SetMetadata("duration", int(meta.Duration.Seconds()))
	}
	return save(it)
}
