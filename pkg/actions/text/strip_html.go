package text

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/transcript"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&StripHTMLAction{})
}

// StripHTMLAction removes HTML markup from an item body, keeping the
// text. Transcript pipelines use it to drop timestamp and speaker spans
// before reformatting.
type StripHTMLAction struct{}

func (a *StripHTMLAction) Name() string { return "strip_html" }

func (a *StripHTMLAction) Description() string {
	return "Remove HTML tags from the item body, keeping the inner text."
}

func (a *StripHTMLAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[struct{}]()
}

func (a *StripHTMLAction) Precondition() *actions.Precondition {
	return actions.HasTextBody.Or(actions.HasHTMLBody)
}

func (a *StripHTMLAction) MCPTool() bool { return false }

func (a *StripHTMLAction) Execute(_ context.Context, _ *actions.Runtime, input *item.Item, _ string) (*item.Item, error) {
	stripped := transcript.StripTags(input.Body)
	return input.DerivedCopy(item.TypeDoc,
		item.WithBody(stripped),
		item.WithFormat(item.FormatMarkdown),
	), nil
}
