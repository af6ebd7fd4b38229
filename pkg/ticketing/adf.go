package ticketing

import "fmt"

// buildSummaryADF renders a triage result as an Atlassian Document
// Format comment body.
func buildSummaryADF(result TriageResult) map[string]any {
	content := []any{
		adfHeading(3, "Autopilot Triage Summary"),
	}

	statusText := fmt.Sprintf("Severity: %s | Type: %s | Confidence: %.0f%%",
		result.Policy.FinalSeverity, result.Verdict.Category, result.Verdict.Confidence*100)
	if result.Policy.Overridden {
		statusText += fmt.Sprintf(" | Overridden from %s", result.Policy.OriginalSeverity)
	}
	content = append(content, adfParagraph(adfStrongText(statusText)))

	content = append(content, adfParagraph(
		adfStrongText("Summary: "),
		adfText(result.Verdict.Summary),
	))

	if result.Correlated {
		content = append(content, adfWarningPanel(
			fmt.Sprintf("This incident may be related to %s", result.CorrelatedWith)))
	}

	if len(result.Verdict.FirstActions) > 0 {
		content = append(content, adfHeading(4, "First Actions"))
		items := make([]any, 0, len(result.Verdict.FirstActions))
		for _, action := range result.Verdict.FirstActions {
			items = append(items, map[string]any{
				"type":    "listItem",
				"content": []any{adfParagraph(adfText(action))},
			})
		}
		content = append(content, map[string]any{"type": "bulletList", "content": items})
	}

	if result.Verdict.RunbookSuggestion != "" {
		content = append(content, adfParagraph(
			adfStrongText("Suggested Runbook: "),
			adfText(result.Verdict.RunbookSuggestion),
		))
	}

	if result.Policy.NeedsHumanReview {
		content = append(content, adfInfoPanel(fmt.Sprintf(
			"Needs human review - confidence below threshold (%.0f%%).",
			result.Verdict.Confidence*100,
		)))
	}

	content = append(content, map[string]any{
		"type": "paragraph",
		"content": []any{
			map[string]any{"type": "text", "text": "Generated by Incident Autopilot", "marks": []any{map[string]string{"type": "em"}}},
		},
	})

	return adfDoc(content...)
}

func adfDoc(content ...any) map[string]any {
	return map[string]any{"version": 1, "type": "doc", "content": content}
}

func adfHeading(level int, text string) map[string]any {
	return map[string]any{
		"type":    "heading",
		"attrs":   map[string]any{"level": level},
		"content": []any{adfText(text)},
	}
}

func adfParagraph(nodes ...map[string]any) map[string]any {
	content := make([]any, len(nodes))
	for i, n := range nodes {
		content[i] = n
	}
	return map[string]any{"type": "paragraph", "content": content}
}

func adfText(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

func adfStrongText(text string) map[string]any {
	return map[string]any{"type": "text", "text": text, "marks": []any{map[string]string{"type": "strong"}}}
}

func adfWarningPanel(text string) map[string]any {
	return adfPanel("warning", text)
}

func adfInfoPanel(text string) map[string]any {
	return adfPanel("info", text)
}

func adfPanel(panelType, text string) map[string]any {
	return map[string]any{
		"type":    "panel",
		"attrs":   map[string]any{"panelType": panelType},
		"content": []any{adfParagraph(adfText(text))},
	}
}
