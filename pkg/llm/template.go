package llm

import "strings"

// MessageTemplate is a prompt template with {name} placeholders, paired
// with an optional system prompt.
type MessageTemplate struct {
	System   string
	Template string
}

// Format interpolates the template's {name} placeholders from vars.
// Placeholders without a matching var are left in place.
func (t MessageTemplate) Format(vars map[string]string) string {
	if len(vars) == 0 {
		return t.Template
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(t.Template)
}

// Request builds a completion request from the formatted template.
func (t MessageTemplate) Request(vars map[string]string) Request {
	return Request{
		System: t.System,
		Prompt: t.Format(vars),
	}
}
