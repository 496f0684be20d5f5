package media

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&MediaMetadataAction{})
}

// MediaMetadataAction fetches service metadata for a media URL and
// attaches it to the item's frontmatter, filling in the title and
// description when the item has none.
type MediaMetadataAction struct{}

func (a *MediaMetadataAction) Name() string { return "media_metadata" }

func (a *MediaMetadataAction) Description() string {
	return "Fetch media service metadata and attach it to the item."
}

func (a *MediaMetadataAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[struct{}]()
}

func (a *MediaMetadataAction) Precondition() *actions.Precondition {
	return actions.HasMediaID
}

func (a *MediaMetadataAction) MCPTool() bool { return false }

func (a *MediaMetadataAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	svc, err := services(rt).ServiceFor(input.URL)
	if err != nil {
		return nil, err
	}
	meta, err := svc.Metadata(ctx, input.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching metadata for %s", input.URL)
	}

	output := updatedCopy(input)
	output.SetMetadata("media_id", meta.MediaID)
	output.SetMetadata("media_service", meta.MediaService)
	if meta.ThumbnailURL != "" {
		output.SetMetadata("thumbnail_url", meta.ThumbnailURL)
	}
	if meta.ChannelURL != "" {
		output.SetMetadata("channel_url", meta.ChannelURL)
	}
	if meta.Uploader != "" {
		output.SetMetadata("uploader", meta.Uploader)
	}
	if meta.UploadDate != "" {
		output.SetMetadata("upload_date", meta.UploadDate)
	}
	if meta.Duration > 0 {
		output.SetMetadata("duration", int(meta.Duration.Seconds()))
	}
	if meta.ViewCount > 0 {
		output.SetMetadata("view_count", meta.ViewCount)
	}
	if len(meta.Heatmap) > 0 {
		output.SetMetadata("heatmap", meta.Heatmap)
	}
	if output.Title == "" {
		output.Title = meta.Title
	}
	if output.Description == "" {
		output.Description = meta.Description
	}

	logger.G(ctx).WithField("media_id", meta.MediaID).Info("attached media metadata")
	return output, nil
}
