// Package normalize turns a heterogeneous ticketing-webhook payload into
// an internal domain.Incident, including ADF text extraction and
// environment inference from free text.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

var environmentPatterns = []struct {
	env      domain.Environment
	patterns []*regexp.Regexp
}{
	{domain.EnvironmentProd, compileAll(`\bprod\b`, `\bproduction\b`, `\bprd\b`, `\blive\b`)},
	{domain.EnvironmentStaging, compileAll(`\bstaging\b`, `\bstage\b`, `\bstg\b`, `\buat\b`, `\bpre-?prod\b`)},
	{domain.EnvironmentDev, compileAll(`\bdev\b`, `\bdevelopment\b`, `\btest\b`, `\bqa\b`, `\blocal\b`, `\bsandbox\b`)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// DetectEnvironment infers the environment from free text and labels.
// First list to match wins, in {prod, staging, dev} order; no match
// yields unknown.
func DetectEnvironment(labels []string, title, description string, components []string) domain.Environment {
	parts := make([]string, 0, len(labels)+len(components)+2)
	parts = append(parts, title, description)
	parts = append(parts, labels...)
	parts = append(parts, components...)
	searchable := strings.ToLower(strings.Join(parts, " "))

	for _, family := range environmentPatterns {
		for _, pattern := range family.patterns {
			if pattern.MatchString(searchable) {
				return family.env
			}
		}
	}
	return domain.EnvironmentUnknown
}

// Normalize converts a webhook payload into a domain.Incident. ok is false
// (with a nil error) when the payload's issue type is not "incident" —
// this is a pipeline skip, not a failure.
func Normalize(payload map[string]any) (incident domain.Incident, ok bool, err error) {
	issue, _ := payload["issue"].(map[string]any)
	fields, _ := issue["fields"].(map[string]any)

	typeName := strings.ToLower(stringField(fields["issuetype"], "name"))
	if typeName != "incident" {
		return domain.Incident{}, false, nil
	}

	externalKey, _ := issue["key"].(string)
	if externalKey == "" {
		return domain.Incident{}, false, nil
	}

	title := asString(fields["summary"])
	description := extractDescription(fields["description"])

	labels := extractLabels(fields["labels"])
	component := extractComponent(fields["components"])
	reporter := extractReporter(fields["reporter"])
	componentNames := extractComponentNames(fields["components"])

	environment := DetectEnvironment(labels, title, description, componentNames)

	createdAt := parseCreated(fields["created"])

	return domain.Incident{
		ExternalKey: externalKey,
		Title:       title,
		Description: description,
		Labels:      labels,
		Component:   component,
		Environment: environment,
		Reporter:    reporter,
		CreatedAt:   createdAt,
		RawPayload:  payload,
	}, true, nil
}

func stringField(v any, field string) string {
	switch t := v.(type) {
	case map[string]any:
		return asString(t[field])
	case string:
		return t
	default:
		return ""
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func extractDescription(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return extractTextFromADF(t)
	default:
		return ""
	}
}

// extractTextFromADF walks an Atlassian-Document-Format tree with an
// explicit stack (rather than recursion) so adversarial documents cannot
// blow the call stack. Text-node leaves contribute their text; other
// nodes are descended via their "content" child list; results are joined
// with single spaces in document order.
func extractTextFromADF(root any) string {
	var texts []string

	// Each stack entry is either a single node or a pending sibling list;
	// siblings are pushed in reverse so they pop in document order.
	stack := []any{root}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch t := node.(type) {
		case map[string]any:
			if t["type"] == "text" {
				texts = append(texts, asString(t["text"]))
			}
			if content, ok := t["content"].([]any); ok {
				for i := len(content) - 1; i >= 0; i-- {
					stack = append(stack, content[i])
				}
			}
		case []any:
			for i := len(t) - 1; i >= 0; i-- {
				stack = append(stack, t[i])
			}
		}
	}

	return strings.Join(texts, " ")
}

func extractLabels(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, asString(item))
	}
	return out
}

func extractComponent(v any) string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return "unknown"
	}
	switch first := list[0].(type) {
	case map[string]any:
		if name := asString(first["name"]); name != "" {
			return name
		}
		return "unknown"
	case string:
		return first
	default:
		return "unknown"
	}
}

func extractComponentNames(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case map[string]any:
			out = append(out, asString(t["name"]))
		case string:
			out = append(out, t)
		}
	}
	return out
}

func extractReporter(v any) string {
	switch t := v.(type) {
	case map[string]any:
		if name := asString(t["displayName"]); name != "" {
			return name
		}
		if name := asString(t["name"]); name != "" {
			return name
		}
		return "unknown"
	case string:
		if t != "" {
			return t
		}
	}
	return "unknown"
}

func parseCreated(v any) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Now().UTC()
	}
	// Jira-style timestamps carry a zone offset; tolerate a trailing "Z".
	s = strings.ReplaceAll(s, "Z", "+00:00")
	if idx := strings.Index(s, "+"); idx >= 0 {
		if t, err := time.Parse("2006-01-02T15:04:05", s[:idx]); err == nil {
			return t.UTC()
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
