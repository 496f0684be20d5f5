// Package text provides the built-in actions that transform item bodies:
// transcript cleanup, LLM rewrites and summaries, and document format
// conversions. Each action registers itself at init time; import the
// package (directly or through pkg/kit) to make them available.
package text

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/llm"
	"github.com/jlevy/kash-media/pkg/transcript"
)

// completeText runs an LLM message template over vars and returns the
// trimmed completion.
func completeText(ctx context.Context, rt *actions.Runtime, tmpl llm.MessageTemplate, vars map[string]string, model string) (string, error) {
	if rt.Provider == nil {
		return "", errors.New("no LLM provider configured")
	}
	req := tmpl.Request(vars)
	req.Model = model
	resp, err := rt.Provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// cleanHeading strips Markdown markup from a title so it reads cleanly in
// headings and summaries.
func cleanHeading(s string) string {
	return transcript.CleanHeading(s)
}
