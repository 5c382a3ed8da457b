package flow

import (
	"regexp"
	"strings"
)

/*
Context carries values between the steps of one run. Adapters publish their
results under the documented keys below, and later step actions may
reference them as {key} placeholders.
*/
type Context map[string]string

const (
	ContextKnowledgeAnswer = "knowledge_answer"
	ContextSearchResult    = "search_result"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

/*
Interpolate substitutes {key} placeholders in text from the context. The
rule is all or nothing: when any referenced key is absent the text comes
back unmodified, placeholders included, so downstream consumers see exactly
what the planner wrote.
*/
func (ctx Context) Interpolate(text string) string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)

	if len(matches) == 0 {
		return text
	}

	for _, match := range matches {
		if _, ok := ctx[match[1]]; !ok {
			return text
		}
	}

	return placeholderPattern.ReplaceAllStringFunc(text, func(placeholder string) string {
		return ctx[strings.Trim(placeholder, "{}")]
	})
}
