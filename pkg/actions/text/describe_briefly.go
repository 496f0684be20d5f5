package text

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/llm"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&DescribeBrieflyAction{})
}

var describeBrieflyTemplate = llm.MessageTemplate{
	System: `You are a careful and precise editor.
You give exactly the results requested without additional commentary.`,
	Template: `Give a brief description of the entire text below, as a summary of two or three sentences.
Write it concisely and clearly, in a form suitable for a short description of a web page
or article.

- Use simple and precise language.

- Simply state the facts or claims without referencing the text or the author. For
  example, if the text is about cheese being nutritious, you can say "Cheese is
  nutritious." But do NOT say "The author says cheese is nutritious" or "According to
  the text, cheese is nutritious."

- If the content is so brief that it can't be described, simply say "(No description.)"

Original text:

{body}

Brief description of the text:`,
}

// DescribeBrieflyInput are the parameters for describe_briefly.
type DescribeBrieflyInput struct {
	Model string `json:"model,omitempty" jsonschema:"description=Model override for the summary"`
}

// DescribeBrieflyAction writes a two-to-three sentence description of a
// text, stored as both the body and the description of the derived item.
type DescribeBrieflyAction struct{}

func (a *DescribeBrieflyAction) Name() string { return "describe_briefly" }

func (a *DescribeBrieflyAction) Description() string {
	return "Write a brief description of a text, in at most three sentences."
}

func (a *DescribeBrieflyAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[DescribeBrieflyInput]()
}

func (a *DescribeBrieflyAction) Precondition() *actions.Precondition {
	return actions.HasTextBody.Or(actions.HasHTMLBody)
}

func (a *DescribeBrieflyAction) MCPTool() bool { return false }

func (a *DescribeBrieflyAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	var p DescribeBrieflyInput
	if err := actions.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	description, err := completeText(ctx, rt, describeBrieflyTemplate, map[string]string{"body": input.Body}, p.Model)
	if err != nil {
		return nil, err
	}

	return input.DerivedCopy(item.TypeDoc,
		item.WithTitle("Summary of "+cleanHeading(input.AbbrevTitle())),
		item.WithBody(description),
		item.WithDescription(description),
		item.WithFormat(item.FormatMarkdown),
	), nil
}
