package text

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&ToMdAction{})
}

// ToMdAction converts an HTML body to Markdown.
type ToMdAction struct{}

func (a *ToMdAction) Name() string { return "to_md" }

func (a *ToMdAction) Description() string {
	return "Convert an HTML document to Markdown."
}

func (a *ToMdAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[struct{}]()
}

func (a *ToMdAction) Precondition() *actions.Precondition {
	return actions.HasHTMLBody
}

func (a *ToMdAction) MCPTool() bool { return true }

func (a *ToMdAction) Execute(_ context.Context, _ *actions.Runtime, input *item.Item, _ string) (*item.Item, error) {
	markdown, err := newMarkdownConverter().ConvertString(input.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert HTML to Markdown")
	}
	return input.DerivedCopy(item.TypeDoc,
		item.WithBody(markdown),
		item.WithFormat(item.FormatMarkdown),
	), nil
}
