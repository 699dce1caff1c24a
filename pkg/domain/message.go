package domain

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry of the append-only conversation log.
type Message struct {
	Text     string `json:"text"`
	Sender   Sender `json:"sender"`
	IsSystem bool   `json:"is_system,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`

	// Options are quick replies the presentation layer may offer.
	Options []string `json:"options,omitempty"`

	// Report is set on the message carrying a health advice result.
	Report *Report `json:"report,omitempty"`
}

// UserMessage records raw user input.
func UserMessage(text string) Message {
	return Message{Text: text, Sender: SenderUser}
}

// BotMessage is a plain assistant reply.
func BotMessage(text string) Message {
	return Message{Text: text, Sender: SenderBot}
}

// ErrorMessage is an assistant reply flagged as an error.
func ErrorMessage(text string) Message {
	return Message{Text: text, Sender: SenderBot, IsError: true}
}

// Report is the structured response of the health advice service.
type Report struct {
	FinalRecommendation []string `json:"final_recommendation"`
	Duration            string   `json:"duration"`
	Frequency           string   `json:"frequency"`
	DietRecommendations string   `json:"diet_recommendations"`
	BlockedWorkouts     []string `json:"blocked_workouts"`
	Reasoning           string   `json:"reasoning"`
}

func cloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	for i, m := range in {
		if m.Options != nil {
			m.Options = append([]string(nil), m.Options...)
		}
		if m.Report != nil {
			r := *m.Report
			r.FinalRecommendation = append([]string(nil), r.FinalRecommendation...)
			r.BlockedWorkouts = append([]string(nil), r.BlockedWorkouts...)
			m.Report = &r
		}
		out[i] = m
	}
	return out
}
