package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/realign/internal/runtime"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/aretw0/realign/pkg/validation"
)

// Fixed node ids of the wizard.
const (
	NodeSelecting = "selecting"
	NodeAwaiting  = "awaiting_advice"
	NodeChatting  = "chatting"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFor marks the answered questions and the current phase of s.
func OverlayFor(c *domain.Catalog, s *domain.State) *GraphOverlay {
	if s == nil {
		return nil
	}
	o := &GraphOverlay{}
	for _, q := range c.Questions() {
		if _, ok := s.Profile[q.Key]; ok {
			o.VisitedNodes = append(o.VisitedNodes, QuestionNode(q.Key))
		}
	}

	switch s.Mode() {
	case domain.ModeCollecting:
		step, _ := s.Phase.Step()
		if q, ok := c.At(step); ok {
			o.CurrentNode = QuestionNode(q.Key)
		}
	case domain.ModeAwaitingAdvice:
		o.CurrentNode = NodeAwaiting
	case domain.ModeChatting:
		o.CurrentNode = NodeChatting
	default:
		o.CurrentNode = NodeSelecting
	}
	return o
}

// QuestionNode is the node id of the question with the given key.
func QuestionNode(key string) string {
	return "q_" + sanitizeMermaidID(key)
}

// GenerateMermaid produces a Mermaid flowchart of the intake wizard.
// Shapes:
// - Selecting: ((Circle))
// - Questions: [/Parallelogram/]
// - Awaiting advice: [[Subroutine]]
// - Chatting: [Rectangle]
// Overlay styles (Visited/Current) are applied if provided.
func GenerateMermaid(c *domain.Catalog, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	questions := c.Questions()
	first := NodeAwaiting
	if len(questions) > 0 {
		first = QuestionNode(questions[0].Key)
	}

	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", NodeSelecting, NodeSelecting)
	fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", NodeSelecting, runtime.LabelHealthAdvice, first)
	fmt.Fprintf(&sb, "    %s -- \"text\" --> %s\n", NodeSelecting, NodeSelecting)

	for i, q := range questions {
		id := QuestionNode(q.Key)
		label := q.Key
		if q.Kind.IsSelect() {
			label = fmt.Sprintf("%s <br/> %d options", q.Key, len(q.Options))
		}
		fmt.Fprintf(&sb, "    %s[/\"%s\"/]\n", id, label)

		next := NodeAwaiting
		if i+1 < len(questions) {
			next = QuestionNode(questions[i+1].Key)
		}
		fmt.Fprintf(&sb, "    %s -- \"valid\" --> %s\n", id, next)

		if q.Key == "age" {
			fmt.Fprintf(&sb, "    %s -. \"under %d\" .-> %s\n", id, validation.MinimumAge, id)
		} else if q.Kind != domain.KindText {
			fmt.Fprintf(&sb, "    %s -. \"invalid\" .-> %s\n", id, id)
		}
	}

	fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", NodeAwaiting, "awaiting advice")
	fmt.Fprintf(&sb, "    %s -- \"report or error\" --> %s\n", NodeAwaiting, NodeChatting)
	fmt.Fprintf(&sb, "    %s[\"%s\"]\n", NodeChatting, NodeChatting)
	fmt.Fprintf(&sb, "    %s -- \"message\" --> %s\n", NodeChatting, NodeChatting)
	fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", NodeChatting, runtime.LabelHealthAdvice, first)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
