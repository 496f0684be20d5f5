package text

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/transcript"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&RemoveSpeakerLabelsAction{})
}

// RemoveSpeakerLabelsAction strips speaker spans from a transcript. Handy
// when transcription added them erroneously.
type RemoveSpeakerLabelsAction struct{}

func (a *RemoveSpeakerLabelsAction) Name() string { return "remove_speaker_labels" }

func (a *RemoveSpeakerLabelsAction) Description() string {
	return "Remove speaker label spans from a transcript."
}

func (a *RemoveSpeakerLabelsAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[struct{}]()
}

func (a *RemoveSpeakerLabelsAction) Precondition() *actions.Precondition {
	return actions.HasTextBody.Or(actions.HasHTMLBody)
}

func (a *RemoveSpeakerLabelsAction) MCPTool() bool { return false }

func (a *RemoveSpeakerLabelsAction) Execute(_ context.Context, _ *actions.Runtime, input *item.Item, _ string) (*item.Item, error) {
	labels := transcript.FindSpeakerLabels(input.Body)
	replacements := make([]transcript.Replacement, 0, len(labels))
	for _, match := range labels {
		replacements = append(replacements, transcript.Replacement{
			Start: match.Start,
			End:   match.End,
		})
	}
	body, err := transcript.ReplaceMultiple(input.Body, replacements)
	if err != nil {
		return nil, err
	}
	return input.DerivedCopy(item.TypeDoc, item.WithBody(body)), nil
}
