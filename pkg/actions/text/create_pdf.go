package text

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/types/item"
)

func init() {
	actions.Register(&CreatePDFAction{})
}

const pdfRenderTimeout = 3 * time.Minute

// pdfRenderers are tried in order; the first one found on PATH renders
// the document.
var pdfRenderers = []string{"weasyprint", "wkhtmltopdf"}

// CreatePDFAction renders a text or Markdown body to a standalone PDF
// export.
type CreatePDFAction struct{}

func (a *CreatePDFAction) Name() string { return "create_pdf" }

func (a *CreatePDFAction) Description() string {
	return "Create a PDF from text or Markdown."
}

func (a *CreatePDFAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[struct{}]()
}

func (a *CreatePDFAction) Precondition() *actions.Precondition {
	return actions.HasTextBody.Or(actions.HasHTMLBody)
}

func (a *CreatePDFAction) MCPTool() bool { return true }

func (a *CreatePDFAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, _ string) (*item.Item, error) {
	var content string
	var err error
	if input.Format == item.FormatHTML {
		content = input.Body
	} else {
		content, err = input.BodyAsHTML()
		if err != nil {
			return nil, err
		}
	}

	title := cleanHeading(input.AbbrevTitle())
	page := standalonePage(title, content)

	tmpDir, err := os.MkdirTemp("", "kash-pdf-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PDF work directory")
	}
	htmlPath := filepath.Join(tmpDir, "doc.html")
	pdfPath := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write PDF source HTML")
	}

	if err := renderPDF(ctx, htmlPath, pdfPath); err != nil {
		return nil, err
	}
	logger.G(ctx).WithField("path", pdfPath).Info("rendered PDF")

	output := input.DerivedCopy(item.TypeExport,
		item.WithFormat(item.FormatPDF),
		item.WithBody(""),
	)
	output.ExternalPath = pdfPath
	return output, nil
}

func standalonePage(title, contentHTML string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: Georgia, "Times New Roman", serif; line-height: 1.5; margin: 2em 3em; }
h1 { font-size: 1.5em; }
img { max-width: 100%%; }
</style>
</head>
<body>
<h1>%s</h1>
%s
</body>
</html>
`, html.EscapeString(title), html.EscapeString(title), contentHTML)
}

func renderPDF(ctx context.Context, htmlPath, pdfPath string) error {
	var renderer string
	for _, candidate := range pdfRenderers {
		if _, err := exec.LookPath(candidate); err == nil {
			renderer = candidate
			break
		}
	}
	if renderer == "" {
		return errors.Errorf("no PDF renderer found, install one of: %s", strings.Join(pdfRenderers, ", "))
	}

	ctx, cancel := context.WithTimeout(ctx, pdfRenderTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, renderer, htmlPath, pdfPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Errorf("%s timed out after %s", renderer, pdfRenderTimeout)
		}
		return errors.Wrapf(err, "%s failed: %s", renderer, strings.TrimSpace(stderr.String()))
	}
	return nil
}
