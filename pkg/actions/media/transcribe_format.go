package media

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&TranscribeFormatAction{})
}

// transcribeFormatSteps is the pipeline run by transcribe_format, each a
// registered action looked up by name. strip_html lives in the text
// action package, so running this pipeline requires both packages to be
// imported (pkg/kit imports them all).
var transcribeFormatSteps = []string{
	"transcribe",
	"identify_speakers",
	"strip_html",
	"break_into_paragraphs",
	"backfill_timestamps",
}

// TranscribeFormatInput are the parameters for transcribe_format.
type TranscribeFormatInput struct {
	Language string `json:"language,omitempty" jsonschema:"description=ISO language code of the audio (default en)"`
}

// TranscribeFormatAction transcribes a recording and runs the full
// formatting pipeline: speaker identification, tag stripping, paragraph
// breaks, and timestamp backfill. Every intermediate document is saved,
// so the provenance chain back to the raw transcript stays walkable.
type TranscribeFormatAction struct{}

func (a *TranscribeFormatAction) Name() string { return "transcribe_format" }

func (a *TranscribeFormatAction) Description() string {
	return "Transcribe a recording and format the transcript into timestamped paragraphs."
}

func (a *TranscribeFormatAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[TranscribeFormatInput]()
}

func (a *TranscribeFormatAction) Precondition() *actions.Precondition {
	return actions.IsURLItem.Or(actions.IsAudioResource).Or(actions.IsVideoResource)
}

func (a *TranscribeFormatAction) MCPTool() bool { return true }

func (a *TranscribeFormatAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	var p TranscribeFormatInput
	if err := actions.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}
	transcribeParams, err := json.Marshal(TranscribeInput{Language: p.Language})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode transcribe params")
	}

	current := input
	for _, name := range transcribeFormatSteps {
		step, ok := actions.Get(name)
		if !ok {
			return nil, errors.Errorf("pipeline step %s is not registered", name)
		}
		stepParams := ""
		if name == "transcribe" {
			stepParams = string(transcribeParams)
		}
		current, err = actions.Run(ctx, rt, step, current, stepParams)
		if err != nil {
			return nil, err
		}
	}
	// The last step already saved the result; the framework's save after
	// this return writes it back in place unchanged.
	return current, nil
}
