package media

import (
	"context"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/logger"
	mediasvc "github.com/jlevy/kash-media/pkg/media"
	"github.com/jlevy/kash-media/pkg/transcript"
	"github.com/jlevy/kash-media/pkg/types/item"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

func init() {
	actions.Register(&InsertFrameCapturesAction{})
}

// DefaultFrameSimilarityThreshold drops a frame when it is at least this
// similar to the previous kept frame.
const DefaultFrameSimilarityThreshold = 0.6

// InsertFrameCapturesInput are the parameters for insert_frame_captures.
type InsertFrameCapturesInput struct {
	Threshold float64 `json:"threshold,omitempty" jsonschema:"description=Similarity threshold in (0 to 1] above which consecutive frames are dropped (default 0.6)"`
}

// InsertFrameCapturesAction captures a video frame at each transcript
// timestamp and inserts it after the timestamp's span. Near-duplicate
// consecutive frames (talking heads, static slides) are filtered out by
// perceptual hash similarity.
type InsertFrameCapturesAction struct{}

func (a *InsertFrameCapturesAction) Name() string { return "insert_frame_captures" }

func (a *InsertFrameCapturesAction) Description() string {
	return "Capture video frames at transcript timestamps and insert them into the document."
}

func (a *InsertFrameCapturesAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[InsertFrameCapturesInput]()
}

func (a *InsertFrameCapturesAction) Precondition() *actions.Precondition {
	return actions.HasTextBody.And(actions.HasTimestamps).And(actions.HasFrameCaptures.Not())
}

func (a *InsertFrameCapturesAction) MCPTool() bool { return false }

func (a *InsertFrameCapturesAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	var p InsertFrameCapturesInput
	if err := actions.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return nil, errors.Wrapf(actions.ErrInvalidInput, "threshold %v out of range (0 to 1]", p.Threshold)
	}
	threshold := p.Threshold
	if threshold == 0 {
		threshold = DefaultFrameSimilarityThreshold
	}

	res, err := rt.Workspace.FindUpstreamResource(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "finding source video")
	}
	if rt.Cache == nil {
		return nil, errors.New("no media cache configured")
	}
	cached, err := rt.Cache.CacheMedia(ctx, res.URL, []mediatypes.Type{mediatypes.TypeVideo})
	if err != nil {
		return nil, err
	}
	videoPath, ok := cached[mediatypes.TypeVideo]
	if !ok {
		return nil, errors.Errorf("no video available for %s", res.URL)
	}

	matches, malformed := transcript.ExtractTimestamps(input.Body)
	if len(malformed) > 0 {
		logger.G(ctx).WithField("values", malformed).Warn("skipping malformed timestamps")
	}
	seconds := make([]float64, len(matches))
	for i, m := range matches {
		seconds[i] = m.Seconds
	}

	assetsDir, err := rt.Workspace.AssetsDir(input)
	if err != nil {
		return nil, err
	}
	prefix := input.SlugName()
	if prefix == "" {
		prefix = input.ID
	}
	framePaths, err := mediasvc.CaptureFrames(ctx, videoPath, seconds, assetsDir, prefix)
	if err != nil {
		return nil, err
	}
	for _, framePath := range framePaths {
		if _, cacheErr := rt.Cache.CacheFile(ctx, framePath); cacheErr != nil {
			logger.G(ctx).WithField("frame", framePath).WithError(cacheErr).Warn("could not cache captured frame")
		}
	}

	kept := mediasvc.FilterSimilarFrames(ctx, framePaths, threshold)
	insertions := make([]transcript.Insertion, 0, len(kept))
	for _, idx := range kept {
		rel, relErr := rt.Workspace.RelPath(framePaths[idx])
		if relErr != nil {
			return nil, relErr
		}
		alt := "Frame at " + mediatypes.FormatTimestamp(time.Duration(matches[idx].Seconds*float64(time.Second)))
		insertions = append(insertions, transcript.Insertion{
			Offset: matches[idx].End,
			Text:   transcript.MdPara(transcript.FrameCaptureImg(rel, alt)),
		})
	}

	body, err := transcript.InsertMultiple(input.Body, insertions)
	if err != nil {
		return nil, err
	}
	logger.G(ctx).WithFields(logrus.Fields{
		"captured": len(framePaths),
		"inserted": len(insertions),
	}).Info("inserted frame captures")

	return input.DerivedCopy(item.TypeDoc,
		item.WithBody(body),
		item.WithFormat(item.FormatMdHTML),
	), nil
}
