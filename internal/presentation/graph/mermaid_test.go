package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/realign/internal/presentation/graph"
	"github.com/aretw0/realign/pkg/catalog"
	"github.com/aretw0/realign/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	small := domain.MustCatalog([]domain.Question{
		{Key: "first-name", Prompt: "Name?", Kind: domain.KindText},
		{Key: "age", Prompt: "Age?", Kind: domain.KindNumber},
		{Key: "mood", Prompt: "Mood?", Kind: domain.KindSingleSelect, Options: []string{"Good", "Bad"}},
	})

	tests := []struct {
		name     string
		catalog  *domain.Catalog
		contains []string
		absent   []string
	}{
		{
			name:    "Fixed Phases",
			catalog: small,
			contains: []string{
				"selecting((\"selecting\"))",
				"awaiting_advice[[\"awaiting advice\"]]",
				"chatting[\"chatting\"]",
				"awaiting_advice -- \"report or error\" --> chatting",
			},
		},
		{
			name:    "Question Chain",
			catalog: small,
			contains: []string{
				"selecting -- \"Health Advice\" --> q_first_name",
				"q_first_name -- \"valid\" --> q_age",
				"q_age -- \"valid\" --> q_mood",
				"q_mood -- \"valid\" --> awaiting_advice",
				"q_mood[/\"mood <br/> 2 options\"/]",
			},
		},
		{
			name:    "Reprompts",
			catalog: small,
			contains: []string{
				"q_age -. \"under 18\" .-> q_age",
				"q_mood -. \"invalid\" .-> q_mood",
			},
			absent: []string{
				"q_first_name -. \"invalid\"",
			},
		},
		{
			name:    "Restart From Chat",
			catalog: catalog.Health(),
			contains: []string{
				"chatting -. \"Health Advice\" .-> q_name",
				"q_health_issues -- \"valid\" --> awaiting_advice",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.catalog, nil)
			if !strings.HasPrefix(got, "graph TD\n") {
				t.Errorf("Expected flowchart header, got:\n%s", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, got)
				}
			}
			for _, no := range tt.absent {
				if strings.Contains(got, no) {
					t.Errorf("Expected output not to contain %q", no)
				}
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	c := catalog.Health()
	s := domain.NewState("s1", "session_1")
	s.Phase = domain.Collecting(2)
	s.Profile["name"] = domain.TextValue("Asha")
	s.Profile["age"] = domain.NumberValue(30)

	got := graph.GenerateMermaid(c, graph.OverlayFor(c, s))

	for _, want := range []string{
		"classDef visited",
		"class q_name visited;",
		"class q_age visited;",
		"class q_gender current;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected overlay to contain %q, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "class q_gender visited;") {
		t.Error("unanswered question must not be marked visited")
	}
}

func TestOverlayFor_Phases(t *testing.T) {
	c := catalog.Health()
	s := domain.NewState("s1", "session_1")

	if got := graph.OverlayFor(c, s).CurrentNode; got != graph.NodeSelecting {
		t.Errorf("Expected %s, got %s", graph.NodeSelecting, got)
	}
	s.Phase = domain.AwaitingAdvice()
	if got := graph.OverlayFor(c, s).CurrentNode; got != graph.NodeAwaiting {
		t.Errorf("Expected %s, got %s", graph.NodeAwaiting, got)
	}
	s.Phase = domain.Chatting()
	if got := graph.OverlayFor(c, s).CurrentNode; got != graph.NodeChatting {
		t.Errorf("Expected %s, got %s", graph.NodeChatting, got)
	}
	if graph.OverlayFor(c, nil) != nil {
		t.Error("Expected nil overlay for nil state")
	}
}
