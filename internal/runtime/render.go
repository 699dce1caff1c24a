package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/realign/pkg/domain"
)

// LabelHealthAdvice is the quick reply shown for the structured intake.
const LabelHealthAdvice = "Health Advice"

const (
	msgWelcome = "Hi, I'm your ReAlign Wellness Assistant.\n\n" +
		"I can help you with questions related to ReAlign's workouts and health guidance.\n\n" +
		"For personalised health, diet, and workout guidance, click **Health Advice** below."
	firstPromptPrefix = "I can help with that. First, "
	msgSelectFirst    = "Please select an option above to continue."
	msgAccessDenied   = "Access Denied: You must be at least 18 years old to use this service."
	msgInvalidField   = "Please enter a valid %s."
	msgPreparing      = "Thanks! I'm preparing your personalised suggestions."
	msgStillWorking   = "I'm still preparing your suggestions. Please wait a moment."
	msgAdviceFailed   = "API Error. I couldn't prepare your suggestions right now. Select Health Advice to try again."
	msgChatFailed     = "Error reaching server."
	msgChatFallback   = "I didn't quite get that."
)

func welcomeMessage() domain.Message {
	return domain.Message{
		Text:     msgWelcome,
		Sender:   domain.SenderBot,
		IsSystem: true,
		Options:  []string{LabelHealthAdvice},
	}
}

// promptMessage asks q. Select questions carry their options as quick replies.
func promptMessage(q domain.Question) domain.Message {
	msg := domain.BotMessage(q.Prompt)
	if q.Kind.IsSelect() {
		msg.Options = append([]string(nil), q.Options...)
	}
	return msg
}

func humanize(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// RenderReport formats an advice report as Markdown.
func RenderReport(r *domain.Report) string {
	if r == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Suggestions\n\n")

	b.WriteString("### Workout strategy\n\n")
	b.WriteString(strings.Join(r.FinalRecommendation, ", "))
	b.WriteString("\n\n")
	if r.Duration != "" || r.Frequency != "" {
		fmt.Fprintf(&b, "_%s | %s_\n\n", r.Duration, r.Frequency)
	}

	if r.DietRecommendations != "" {
		b.WriteString("### Nutritional guidance\n\n")
		b.WriteString(r.DietRecommendations)
		b.WriteString("\n\n")
	}

	if len(r.BlockedWorkouts) > 0 {
		b.WriteString("### Safety restrictions\n\n")
		fmt.Fprintf(&b, "%s are restricted based on your health profile.\n\n", strings.Join(r.BlockedWorkouts, ", "))
	}

	if r.Reasoning != "" {
		b.WriteString(blockquote(`"` + r.Reasoning + `"`))
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// blockquote prefixes every line of text so markdown keeps it in one quote.
func blockquote(text string) string {
	text = strings.ReplaceAll(strings.TrimRight(text, "\r\n"), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("> "+line, " ")
	}
	return strings.Join(lines, "\n") + "\n"
}
