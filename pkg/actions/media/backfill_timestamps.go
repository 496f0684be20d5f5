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
	actions.Register(&BackfillTimestampsAction{})
}

// BackfillTimestampsAction re-attaches source timestamps to a formatted
// transcript. Formatting steps strip the inline spans, so this walks
// provenance back to a timestamped transcript, matches each paragraph's
// first sentence against it, and inserts a timestamp span at the
// paragraph start. When the source media service is known the timestamp
// links straight to that moment of the recording.
type BackfillTimestampsAction struct{}

func (a *BackfillTimestampsAction) Name() string { return "backfill_timestamps" }

func (a *BackfillTimestampsAction) Description() string {
	return "Re-attach source timestamps to each paragraph of a formatted transcript."
}

func (a *BackfillTimestampsAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[struct{}]()
}

func (a *BackfillTimestampsAction) Precondition() *actions.Precondition {
	return actions.HasTextBody
}

func (a *BackfillTimestampsAction) MCPTool() bool { return false }

func (a *BackfillTimestampsAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	source, err := rt.Workspace.FindUpstream(ctx, input, actions.HasTimestamps.Check)
	if err != nil {
		return nil, errors.Wrap(err, "no timestamped transcript upstream")
	}

	matches, malformed := transcript.ExtractTimestamps(source.Body)
	if len(malformed) > 0 {
		logger.G(ctx).WithField("values", malformed).Warn("skipping malformed timestamps in source transcript")
	}

	// Timestamp links need the original media URL and its service; both
	// are optional, plain timestamps work without them.
	var svc mediasvc.Service
	mediaURL := ""
	if res, resErr := rt.Workspace.FindUpstreamResource(ctx, input); resErr == nil {
		if s, svcErr := services(rt).ServiceFor(res.URL); svcErr == nil {
			svc = s
			mediaURL = res.URL
		}
	}

	var insertions []transcript.Insertion
	for _, para := range transcript.Paragraphs(input.Body) {
		first := transcript.FirstSentence(para.Text)
		if first == "" {
			continue
		}
		offset := transcript.FindSentenceOffset(source.Body, first)
		if offset < 0 {
			logger.G(ctx).WithField("sentence", first).Debug("paragraph start not found in source transcript")
			continue
		}
		match, tsErr := transcript.NearestTimestampBefore(matches, offset)
		if tsErr != nil {
			continue
		}
		insertions = append(insertions, transcript.Insertion{
			Offset: para.Start,
			Text:   timestampPrefix(svc, mediaURL, match.Seconds),
		})
	}
	if len(insertions) == 0 {
		logger.G(ctx).Warn("no paragraph starts matched the source transcript, leaving timestamps off")
		return input, nil
	}

	body, err := transcript.InsertMultiple(input.Body, insertions)
	if err != nil {
		return nil, err
	}
	logger.G(ctx).WithFields(logrus.Fields{
		"paragraphs": len(insertions),
		"source":     source.StorePath,
	}).Info("backfilled paragraph timestamps")

	return input.DerivedCopy(item.TypeDoc,
		item.WithBody(body),
		item.WithFormat(item.FormatMdHTML),
	), nil
}

// timestampPrefix builds the span inserted at a paragraph start, linking
// into the recording when the service supports timestamp URLs.
func timestampPrefix(svc mediasvc.Service, mediaURL string, seconds float64) string {
	label := mediatypes.FormatTimestamp(time.Duration(seconds * float64(time.Second)))
	if svc != nil && mediaURL != "" {
		label = "[" + label + "](" + svc.TimestampURL(mediaURL, seconds) + ")"
	}
	return transcript.TimestampSpan(label, seconds) + " "
}
