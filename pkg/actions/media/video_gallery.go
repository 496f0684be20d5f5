package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/transcript"
	"github.com/jlevy/kash-media/pkg/types/item"
	"github.com/jlevy/kash-media/pkg/webgen"
)

func init() {
	actions.Register(&VideoGalleryConfigAction{})
	actions.Register(&VideoGalleryAction{})
}

// VideoGalleryConfigInput are the parameters for video_gallery_config.
type VideoGalleryConfigInput struct {
	Items []string `json:"items,omitempty" jsonschema:"description=Store paths or URLs of additional items to include after the target"`
}

// VideoGalleryConfigAction assembles a YAML gallery config from items.
// Each item must be, or derive from, a YouTube video; titles and
// descriptions come from the items themselves so summarized or edited
// documents carry their metadata into the gallery.
type VideoGalleryConfigAction struct{}

func (a *VideoGalleryConfigAction) Name() string { return "video_gallery_config" }

func (a *VideoGalleryConfigAction) Description() string {
	return "Build a YAML video gallery config from items derived from YouTube videos."
}

func (a *VideoGalleryConfigAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[VideoGalleryConfigInput]()
}

func (a *VideoGalleryConfigAction) Precondition() *actions.Precondition { return nil }

func (a *VideoGalleryConfigAction) MCPTool() bool { return false }

func (a *VideoGalleryConfigAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	var p VideoGalleryConfigInput
	if err := actions.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	items := []*item.Item{input}
	for _, ref := range p.Items {
		it, err := rt.Workspace.Resolve(ref)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving gallery item %q", ref)
		}
		items = append(items, it)
	}

	videos := make([]webgen.VideoInfo, 0, len(items))
	sources := make([]string, 0, len(items))
	for _, it := range items {
		info, err := videoInfo(ctx, rt, it)
		if err != nil {
			return nil, err
		}
		videos = append(videos, info)
		if it.StorePath != "" {
			sources = append(sources, it.StorePath)
		}
	}

	title := galleryTitle(videos)
	config := webgen.GalleryConfig{Title: title, Videos: videos}
	body, err := config.Marshal()
	if err != nil {
		return nil, err
	}

	output := item.New(item.TypeConfig,
		item.WithTitle("Config for "+title),
		item.WithFormat(item.FormatYAML),
		item.WithBody(body),
	)
	output.DerivedFrom = sources
	logger.G(ctx).WithField("videos", len(videos)).Info("assembled gallery config")
	return output, nil
}

// videoInfo resolves one gallery entry: the item itself when it is a
// YouTube video, otherwise its nearest YouTube upstream.
func videoInfo(ctx context.Context, rt *actions.Runtime, it *item.Item) (webgen.VideoInfo, error) {
	video := it
	if !actions.IsYouTubeVideo.Check(video) {
		upstream, err := rt.Workspace.FindUpstream(ctx, it, actions.IsYouTubeVideo.Check)
		if err != nil {
			return webgen.VideoInfo{}, errors.Wrapf(actions.ErrInvalidInput,
				"item %q has no YouTube video upstream", it.AbbrevTitle())
		}
		video = upstream
	}
	id := services(rt).MediaID(video.URL)
	if id == "" {
		return webgen.VideoInfo{}, errors.Wrapf(actions.ErrInvalidInput,
			"no video ID in %s", video.URL)
	}

	title := it.Title
	if title == "" {
		title = video.Title
	}
	description := it.AbbrevDescription()
	if description == "" {
		description = video.AbbrevDescription()
	}
	return webgen.VideoInfo{
		YouTubeID:   id,
		Title:       transcript.CleanHeading(title),
		Description: description,
	}, nil
}

// galleryTitle names a gallery after its first video.
func galleryTitle(videos []webgen.VideoInfo) string {
	if len(videos) == 0 || videos[0].Title == "" {
		return "Video Gallery"
	}
	if len(videos) == 1 {
		return videos[0].Title
	}
	return fmt.Sprintf("%s and %d more", videos[0].Title, len(videos)-1)
}

// isGalleryConfig matches config items with a body to parse.
var isGalleryConfig = actions.NewPrecondition("is_gallery_config", func(it *item.Item) bool {
	return it.Type == item.TypeConfig && strings.TrimSpace(it.Body) != ""
})

// VideoGalleryAction renders a gallery config into a standalone HTML
// page with click-to-load YouTube embeds, saved as an export item.
type VideoGalleryAction struct{}

func (a *VideoGalleryAction) Name() string { return "video_gallery" }

func (a *VideoGalleryAction) Description() string {
	return "Render a video gallery config into a standalone HTML page."
}

func (a *VideoGalleryAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[struct{}]()
}

func (a *VideoGalleryAction) Precondition() *actions.Precondition {
	return isGalleryConfig
}

func (a *VideoGalleryAction) MCPTool() bool { return false }

func (a *VideoGalleryAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	config, err := webgen.ParseGalleryConfig(input.Body)
	if err != nil {
		return nil, errors.Wrapf(actions.ErrInvalidInput, "bad gallery config: %v", err)
	}
	html, err := webgen.RenderGallery(config)
	if err != nil {
		return nil, err
	}
	logger.G(ctx).WithField("videos", len(config.Videos)).Info("rendered video gallery")
	return input.DerivedCopy(item.TypeExport,
		item.WithTitle(config.Title),
		item.WithFormat(item.FormatHTML),
		item.WithBody(html),
	), nil
}
