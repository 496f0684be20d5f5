package text

import (
	"context"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/llm"
	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/transcript"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&BreakIntoParagraphsAction{})
}

// paragraphWindowChars bounds how much text goes into a single LLM call.
// Long transcripts are rewritten window by window at sentence boundaries.
const paragraphWindowChars = 8000

var breakIntoParagraphsTemplate = llm.MessageTemplate{
	System: `You are a careful and precise editor.
You give exactly the results requested without additional commentary.`,
	Template: `Format the text below into paragraphs:

- Insert a paragraph break (a blank line) wherever the topic or speaker changes,
  keeping paragraphs to roughly three to seven sentences.

- Do NOT change, add, or remove any words. Keep all wording exactly as it appears.

- Output only the formatted text, with no introductions or notes.

Original text:

{body}

Formatted text:`,
}

// BreakIntoParagraphsInput are the parameters for break_into_paragraphs.
type BreakIntoParagraphsInput struct {
	Model string `json:"model,omitempty" jsonschema:"description=Model override for the rewrite"`
}

// BreakIntoParagraphsAction turns a wall-of-text transcript into readable
// paragraphs without changing the wording.
type BreakIntoParagraphsAction struct{}

func (a *BreakIntoParagraphsAction) Name() string { return "break_into_paragraphs" }

func (a *BreakIntoParagraphsAction) Description() string {
	return "Reformat a wall of text into paragraphs, preserving the wording."
}

func (a *BreakIntoParagraphsAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[BreakIntoParagraphsInput]()
}

func (a *BreakIntoParagraphsAction) Precondition() *actions.Precondition {
	return actions.HasTextBody
}

func (a *BreakIntoParagraphsAction) MCPTool() bool { return false }

func (a *BreakIntoParagraphsAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	var p BreakIntoParagraphsInput
	if err := actions.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	windows := sentenceWindows(input.Body, paragraphWindowChars)
	logger.G(ctx).WithField("windows", len(windows)).Debug("breaking text into paragraphs")

	formatted := make([]string, 0, len(windows))
	for _, window := range windows {
		content, err := completeText(ctx, rt, breakIntoParagraphsTemplate, map[string]string{"body": window}, p.Model)
		if err != nil {
			return nil, err
		}
		formatted = append(formatted, content)
	}

	return input.DerivedCopy(item.TypeDoc,
		item.WithBody(strings.Join(formatted, "\n\n")),
		item.WithFormat(item.FormatMarkdown),
	), nil
}

// sentenceWindows packs the text's sentences into windows of at most
// budget characters. A single sentence longer than the budget becomes its
// own window.
func sentenceWindows(text string, budget int) []string {
	sentences := transcript.Sentences(text)
	var windows []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence)+1 > budget {
			windows = append(windows, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		windows = append(windows, current.String())
	}
	return windows
}
