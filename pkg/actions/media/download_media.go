package media

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/media/ytdlp"
	"github.com/jlevy/kash-media/pkg/types/item"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

func init() {
	actions.Register(&DownloadMediaAction{})
}

// DownloadMediaInput are the parameters for download_media.
type DownloadMediaInput struct {
	MediaTypes []string `json:"media_types,omitempty" jsonschema:"description=Media types to download (audio and/or video); default both"`
	Slice      string   `json:"slice,omitempty" jsonschema:"description=Time range START-END to download instead of the whole recording"`
}

// DownloadMediaAction downloads a URL resource's media files into the
// workspace assets directory. Whole recordings go through the content
// cache so repeated downloads are free; sliced downloads skip the cache
// since each slice is a one-off.
type DownloadMediaAction struct{}

func (a *DownloadMediaAction) Name() string { return "download_media" }

func (a *DownloadMediaAction) Description() string {
	return "Download a media URL's audio and/or video into the workspace."
}

func (a *DownloadMediaAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[DownloadMediaInput]()
}

func (a *DownloadMediaAction) Precondition() *actions.Precondition {
	return actions.IsURLItem
}

func (a *DownloadMediaAction) MCPTool() bool { return false }

func (a *DownloadMediaAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	var p DownloadMediaInput
	if err := actions.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}
	want, err := parseMediaTypes(p.MediaTypes)
	if err != nil {
		return nil, err
	}
	var slice *mediatypes.Slice
	if p.Slice != "" {
		parsed, sliceErr := mediatypes.ParseSlice(p.Slice)
		if sliceErr != nil {
			return nil, errors.Wrapf(actions.ErrInvalidInput, "%v", sliceErr)
		}
		slice = &parsed
	}

	assetsDir, err := rt.Workspace.AssetsDir(input)
	if err != nil {
		return nil, err
	}

	var files map[mediatypes.Type]string
	if slice == nil {
		files, err = downloadCached(ctx, rt, input, want, assetsDir)
	} else {
		if err := services(rt).CheckURLAllowed(input.URL); err != nil {
			return nil, err
		}
		svc, svcErr := services(rt).ServiceFor(input.URL)
		if svcErr != nil {
			return nil, svcErr
		}
		files, err = svc.Download(ctx, input.URL, assetsDir, ytdlp.DownloadOptions{
			MediaTypes: want,
			Slice:      slice,
		})
	}
	if err != nil {
		return nil, err
	}

	output := updatedCopy(input)
	for mt, path := range files {
		rel, relErr := rt.Workspace.RelPath(path)
		if relErr != nil {
			return nil, relErr
		}
		output.SetMetadata(string(mt)+"_file", rel)
	}
	logger.G(ctx).WithFields(logrus.Fields{
		"url":   input.URL,
		"files": len(files),
	}).Info("downloaded media")
	return output, nil
}

// downloadCached fetches media through the content cache, then copies
// each cached file into the assets directory under the item's slug.
func downloadCached(ctx context.Context, rt *actions.Runtime, input *item.Item, want []mediatypes.Type, assetsDir string) (map[mediatypes.Type]string, error) {
	if rt.Cache == nil {
		return nil, errors.New("no media cache configured")
	}
	cached, err := rt.Cache.CacheMedia(ctx, input.URL, want)
	if err != nil {
		return nil, err
	}

	name := input.SlugName()
	if name == "" {
		name = input.ID
	}
	files := make(map[mediatypes.Type]string, len(cached))
	for mt, src := range cached {
		dest := filepath.Join(assetsDir, name+filepath.Ext(src))
		if err := copyFile(src, dest); err != nil {
			return nil, err
		}
		files[mt] = dest
	}
	return files, nil
}

func parseMediaTypes(names []string) ([]mediatypes.Type, error) {
	var want []mediatypes.Type
	for _, name := range names {
		switch mediatypes.Type(name) {
		case mediatypes.TypeAudio, mediatypes.TypeVideo:
			want = append(want, mediatypes.Type(name))
		default:
			return nil, errors.Wrapf(actions.ErrInvalidInput, "unknown media type %q, expected audio or video", name)
		}
	}
	return want, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", dest)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "failed to copy to %s", dest)
	}
	return errors.Wrapf(out.Close(), "failed to close %s", dest)
}
