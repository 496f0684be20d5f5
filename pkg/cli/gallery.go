package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/presenter"
)

func newGalleryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gallery <item>...",
		Short: "Build a video gallery page from items",
		Long: `Build a video gallery from items derived from YouTube videos, in one
step: assemble the gallery config, then render it to a standalone HTML
export. Equivalent to running video_gallery_config followed by
video_gallery.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runGalleryCommand(cmd.Context(), args)
		},
	}
}

func runGalleryCommand(ctx context.Context, targets []string) {
	ws := requireWorkspace()

	rt, cleanup, err := newRuntime(ctx, ws)
	if err != nil {
		fatal(err, "failed to assemble runtime")
	}
	defer cleanup()

	params := ""
	if len(targets) > 1 {
		extra, err := json.Marshal(map[string]any{"items": targets[1:]})
		if err != nil {
			fatal(err, "failed to encode gallery items")
		}
		params = string(extra)
	}

	config, err := actions.RunAction(ctx, rt, "video_gallery_config", targets[0], params)
	if err != nil {
		fatal(err, "failed to build gallery config")
	}
	presenter.Info("Config: " + config.StorePath)

	export, err := actions.RunAction(ctx, rt, "video_gallery", config.StorePath, "")
	if err != nil {
		fatal(err, "failed to render gallery")
	}
	presenter.Success("Gallery: " + export.StorePath)
}
