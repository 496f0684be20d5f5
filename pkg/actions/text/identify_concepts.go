package text

import (
	"context"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/llm"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&IdentifyConceptsAction{})
}

// conceptLabels is the taxonomy concepts are annotated with, one label
// per extracted entity.
var conceptLabels = []string{
	"person", "organization", "company", "country", "region", "city", "place",
	"date", "time period", "quantity", "number", "product", "book", "film",
	"event", "activity", "theory", "technology", "language", "culture", "concept",
}

var identifyConceptsTemplate = llm.MessageTemplate{
	System: `You are a careful editor annotating concepts as you would to produce a high-quality
index in a book. You are given a text of one or more paragraphs and you must output a
list of named entities or concepts assigned into one of the categories below.

Output *must* be in bulleted Markdown list format, with no other text or formatting,
exactly in the format it originally appears (including any capitalization or inflections)
with the entity type in parentheses.

For concepts, DO NOT include very abstract and broad concepts.

For example DO NOT include these as they are too general:
human (concept), power (concept), technical problem (concept),
solutions (concept), state (concept), success (concept), three (number),
technology (concept), nuance (concept), information (concept), analogy (concept)

DO include more specific or concrete concepts. DO include:
state management (concept), refactoring (concept),
dampening coefficient (concept), brain (concept),
depression (concept), programming (activity),
graph traversal algorithms (theory), decision theory (theory)

If no entities are found, return the string: "(No results)"

Each item should be labeled for clarity and to disambiguate it, with one of
these labels:
{labels}`,
	Template: `TASK EXAMPLE 1:

Input text:

In Germany, in 1440, goldsmith Johannes Gutenberg invented the movable-type printing press.
His work led to an information revolution and the unprecedented mass-spread of literature
throughout Europe. Modelled on the design of the existing screw presses, a single
Renaissance movable-type printing press could produce up to 3,600 pages per workday.

Concepts:

- Germany (country)
- 1440 (date)
- Johannes Gutenberg (person)
- movable-type printing press (product)
- literature (concept)
- Europe (region)
- Renaissance (event)
- 3,600 pages (quantity)

TASK EXAMPLE 2:

Input text:

How are you doing?

Concepts:

(no results)

NEW TASK:

Input text:

{body}

Concepts:`,
}

// IdentifyConceptsInput are the parameters for identify_concepts.
type IdentifyConceptsInput struct {
	Model string `json:"model,omitempty" jsonschema:"description=Model override for the extraction"`
}

// IdentifyConceptsAction extracts named entities and concepts from a
// text as a labeled, deduplicated Markdown bullet list.
type IdentifyConceptsAction struct{}

func (a *IdentifyConceptsAction) Name() string { return "identify_concepts" }

func (a *IdentifyConceptsAction) Description() string {
	return "Identify concepts and named entities in a text, as a bulleted list labeled by type."
}

func (a *IdentifyConceptsAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[IdentifyConceptsInput]()
}

func (a *IdentifyConceptsAction) Precondition() *actions.Precondition {
	return actions.HasTextBody.Or(actions.HasHTMLBody)
}

func (a *IdentifyConceptsAction) MCPTool() bool { return false }

func (a *IdentifyConceptsAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	var p IdentifyConceptsInput
	if err := actions.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	tmpl := identifyConceptsTemplate
	tmpl.System = strings.ReplaceAll(tmpl.System, "{labels}", strings.Join(conceptLabels, ", "))

	content, err := completeText(ctx, rt, tmpl, map[string]string{"body": input.Body}, p.Model)
	if err != nil {
		return nil, err
	}
	if llm.IsNoResults(content) {
		return nil, errors.Wrapf(llm.ErrInvalidOutput, "no concepts found in %q", input.AbbrevTitle())
	}

	concepts := conceptsFromBullets(content)
	if len(concepts) == 0 {
		return nil, errors.Wrapf(llm.ErrInvalidOutput, "expected a bullet list of concepts, got %q", content)
	}

	return input.DerivedCopy(item.TypeDoc,
		item.WithTitle("Concepts from "+cleanHeading(input.AbbrevTitle())),
		item.WithBody("- "+strings.Join(concepts, "\n- ")+"\n"),
		item.WithFormat(item.FormatMarkdown),
	), nil
}

// conceptsFromBullets pulls the entries out of a Markdown bullet list,
// dropping non-bullet lines, deduplicating case-insensitively, and
// sorting.
func conceptsFromBullets(s string) []string {
	seen := make(map[string]bool)
	var concepts []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "*") {
			continue
		}
		entry := strings.TrimSpace(strings.TrimLeft(line, "-* "))
		if entry == "" {
			continue
		}
		key := strings.ToLower(entry)
		if seen[key] {
			continue
		}
		seen[key] = true
		concepts = append(concepts, entry)
	}
	sort.Slice(concepts, func(i, j int) bool {
		return strings.ToLower(concepts[i]) < strings.ToLower(concepts[j])
	})
	return concepts
}
