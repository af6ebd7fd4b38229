package chat

import (
	"fmt"

	goslack "github.com/slack-go/slack"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

const maxBlockTextLength = 2900

var severityEmoji = map[domain.Severity]string{
	domain.SeverityP1: ":rotating_light:",
	domain.SeverityP2: ":warning:",
	domain.SeverityP3: ":large_yellow_circle:",
	domain.SeverityP4: ":white_circle:",
}

// TriageNotification holds everything needed to render a triage
// notification message.
type TriageNotification struct {
	ExternalKey    string
	IssueURL       string
	Incident       domain.Incident
	Verdict        domain.Verdict
	Policy         domain.PolicyVerdict
	Correlated     bool
	CorrelatedWith string
}

// BuildTriageMessage renders Block Kit blocks for a triage result.
func BuildTriageMessage(n TriageNotification) []goslack.Block {
	emoji := severityEmoji[n.Policy.FinalSeverity]
	if emoji == "" {
		emoji = ":question:"
	}

	title := n.Incident.Title
	if n.IssueURL != "" {
		title = fmt.Sprintf("<%s|%s>", n.IssueURL, n.Incident.Title)
	}

	header := fmt.Sprintf("%s *%s* — %s", emoji, n.Policy.FinalSeverity, title)
	if n.Policy.Overridden {
		header += fmt.Sprintf(" _(overridden from %s)_", n.Policy.OriginalSeverity)
	}

	blocks := []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, header, false, false), nil, nil),
	}

	detail := fmt.Sprintf("*Type:* %s | *Component:* %s | *Environment:* %s | *Confidence:* %.0f%%",
		n.Verdict.Category, n.Incident.Component, n.Incident.Environment, n.Verdict.Confidence*100)
	blocks = append(blocks, goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, truncateForChat(detail), false, false), nil, nil))

	if n.Verdict.Summary != "" {
		summaryText := fmt.Sprintf("*Summary:* %s", n.Verdict.Summary)
		blocks = append(blocks, goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, truncateForChat(summaryText), false, false), nil, nil))
	}

	if n.Correlated {
		corrText := fmt.Sprintf(":link: This incident may be related to %s", n.CorrelatedWith)
		blocks = append(blocks, goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, corrText, false, false), nil, nil))
	}

	if len(n.Verdict.FirstActions) > 0 {
		actions := "*First Actions:*\n"
		for _, action := range n.Verdict.FirstActions {
			actions += fmt.Sprintf("• %s\n", action)
		}
		blocks = append(blocks, goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, truncateForChat(actions), false, false), nil, nil))
	}

	if n.Policy.NeedsHumanReview {
		reviewText := fmt.Sprintf(":bust_in_silhouette: Needs human review — confidence %.0f%% below threshold", n.Verdict.Confidence*100)
		blocks = append(blocks, goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, reviewText, false, false), nil, nil))
	}

	return blocks
}

func truncateForChat(text string) string {
	if len(text) <= maxBlockTextLength {
		return text
	}
	return text[:maxBlockTextLength] + "\n\n_... (truncated)_"
}
