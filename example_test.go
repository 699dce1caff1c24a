package realign_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/realign"
	"github.com/aretw0/realign/pkg/domain"
)

type staticAdvice struct{}

func (staticAdvice) Submit(context.Context, map[string]any) (*domain.Report, error) {
	return &domain.Report{FinalRecommendation: []string{"Brisk walking"}, Duration: "30 min", Frequency: "Daily"}, nil
}

type echoChat struct{}

func (echoChat) Send(_ context.Context, query, _ string) (string, error) {
	return "You asked: " + query, nil
}

// Example walks a session from the service choice to the age gate.
func Example() {
	a, err := realign.New(
		realign.WithAdviceService(staticAdvice{}),
		realign.WithChatService(echoChat{}),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = a.Shutdown(context.Background()) }()

	ctx := context.Background()
	s, _ := a.Open(ctx)
	s, _ = a.Select(ctx, s.SessionID, "Health Advice")
	fmt.Println(s.Phase)

	s, _ = a.Submit(ctx, s.SessionID, "Asha")
	s, _ = a.Submit(ctx, s.SessionID, "17")
	last, _ := s.LastMessage()
	fmt.Println(s.Phase)
	fmt.Println(last.Text)

	s, _ = a.Submit(ctx, s.SessionID, "19")
	last, _ = s.LastMessage()
	fmt.Println(last.Text)

	// Output:
	// collecting(0)
	// collecting(1)
	// Access Denied: You must be at least 18 years old to use this service.
	// What is your gender?
}
