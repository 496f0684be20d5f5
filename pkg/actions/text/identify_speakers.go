package text

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/llm"
	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/transcript"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&IdentifySpeakersAction{})
}

var identifySpeakersTemplate = llm.MessageTemplate{
	System: "You are an assistant that identifies speakers in transcripts.",
	Template: `The transcript below includes speakers identified by IDs like 'SPEAKER 0' or 'SPEAKER 1'.
Based on the transcript, provide a mapping from speaker IDs to actual speaker names.
The mapping should be in JSON format like {"0": "Alice", "1": "Bob"}.
If you are not sure from the content, leave the names as is, writing something like
{"0": "Alice", "1": "SPEAKER 1"} or {"0": "SPEAKER 0", "1": "SPEAKER 1"}.

Transcript:

{body}`,
}

// IdentifySpeakersInput are the parameters for identify_speakers.
type IdentifySpeakersInput struct {
	Model string `json:"model,omitempty" jsonschema:"description=Model override for the identification call"`
}

// IdentifySpeakersAction asks an LLM to map speaker IDs in a transcript
// to the speakers' actual names and rewrites the speaker spans in place.
type IdentifySpeakersAction struct{}

func (a *IdentifySpeakersAction) Name() string { return "identify_speakers" }

func (a *IdentifySpeakersAction) Description() string {
	return "Identify speakers in a transcript and replace speaker ID placeholders with their names."
}

func (a *IdentifySpeakersAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[IdentifySpeakersInput]()
}

func (a *IdentifySpeakersAction) Precondition() *actions.Precondition {
	return actions.HasTextBody.Or(actions.HasHTMLBody)
}

func (a *IdentifySpeakersAction) MCPTool() bool { return false }

func (a *IdentifySpeakersAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	var p IdentifySpeakersInput
	if err := actions.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	labels := transcript.FindSpeakerLabels(input.Body)
	if len(labels) == 0 {
		logger.G(ctx).Warn("document has no speaker labels, skipping identification")
		return input, nil
	}

	content, err := completeText(ctx, rt, identifySpeakersTemplate, map[string]string{"body": input.Body}, p.Model)
	if err != nil {
		return nil, err
	}
	mapping, err := llm.FuzzyParseJSON(content)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse speaker mapping")
	}
	logger.G(ctx).WithField("speakers", mapping).Info("identified speakers from transcript")

	replacements := make([]transcript.Replacement, 0, len(labels))
	for _, match := range labels {
		name, _ := mapping[match.SpeakerID].(string)
		if name == "" {
			name = "SPEAKER " + match.SpeakerID
		}
		replacements = append(replacements, transcript.Replacement{
			Start: match.Start,
			End:   match.End,
			Text:  transcript.SpeakerSpan("**"+name+":**", match.SpeakerID),
		})
	}

	body, err := transcript.ReplaceMultiple(input.Body, replacements)
	if err != nil {
		return nil, err
	}
	return input.DerivedCopy(item.TypeDoc, item.WithBody(body)), nil
}
