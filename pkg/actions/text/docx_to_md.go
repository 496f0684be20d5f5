package text

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&DocxToMdAction{})
}

const pandocTimeout = 2 * time.Minute

var firstHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)

// DocxToMdAction converts a docx resource to clean Markdown: pandoc
// renders the document to HTML, which is then converted to Markdown with
// superscripts and subscripts preserved. Works well on docx exports of
// Gemini Deep Research reports.
type DocxToMdAction struct{}

func (a *DocxToMdAction) Name() string { return "docx_to_md" }

func (a *DocxToMdAction) Description() string {
	return "Convert a docx file to clean Markdown, in good enough shape to publish."
}

func (a *DocxToMdAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[struct{}]()
}

func (a *DocxToMdAction) Precondition() *actions.Precondition {
	return actions.IsDocxResource
}

func (a *DocxToMdAction) MCPTool() bool { return true }

func (a *DocxToMdAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, _ string) (*item.Item, error) {
	docxPath := input.ExternalPath
	if docxPath == "" {
		if input.StorePath == "" {
			return nil, errors.Wrapf(actions.ErrInvalidInput, "docx item %q has no stored file", input.AbbrevTitle())
		}
		var err error
		docxPath, err = rt.Workspace.AbsPath(input.StorePath)
		if err != nil {
			return nil, err
		}
	}

	html, err := pandocToHTML(ctx, docxPath)
	if err != nil {
		return nil, err
	}
	markdown, err := newMarkdownConverter().ConvertString(html)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert document HTML to Markdown")
	}

	title := input.AbbrevTitle()
	if m := firstHeadingRe.FindStringSubmatch(markdown); m != nil {
		title = cleanHeading(m[1])
	}

	return input.DerivedCopy(item.TypeDoc,
		item.WithTitle(title),
		item.WithBody(markdown),
		item.WithFormat(item.FormatMarkdown),
	), nil
}

// newMarkdownConverter builds the HTML to Markdown converter shared by
// the conversion actions. Superscript and subscript elements are kept as
// inline HTML since Markdown has no syntax for them.
func newMarkdownConverter() *md.Converter {
	converter := md.NewConverter("", true, nil)
	converter.Keep("sup", "sub")
	return converter
}

func pandocToHTML(ctx context.Context, docxPath string) (string, error) {
	if _, err := exec.LookPath("pandoc"); err != nil {
		return "", errors.New("pandoc binary not found, install it from https://pandoc.org")
	}
	ctx, cancel := context.WithTimeout(ctx, pandocTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pandoc", "-f", "docx", "-t", "html", "--wrap=none", docxPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.Errorf("pandoc timed out after %s", pandocTimeout)
		}
		return "", errors.Wrapf(err, "pandoc failed: %s", strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
