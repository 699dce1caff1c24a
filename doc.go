/*
Package realign is the conversational intake engine of the ReAlign wellness assistant.

A session walks the user through a fixed health questionnaire, validates and
coerces every answer, blocks users under 18, submits the completed profile to
a remote advice service and then relays freeform questions to a chat service.

# Concept

The conversation is a pure state machine (internal/runtime): every user action
and every remote result is an event applied to an explicit State. Remote calls
are returned as effects, executed by the Assistant in the background and fed
back as events tagged with the session generation, so a restart silently drops
late results.

# Usage

	client := advice.New("https://ai-api.realign.fit")
	a, err := realign.New(
		realign.WithAdviceService(client),
		realign.WithChatService(client),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Shutdown(context.Background())

	s, _ := a.Open(ctx)
	s, _ = a.Select(ctx, s.SessionID, "Health Advice")
	s, _ = a.Submit(ctx, s.SessionID, "Asha")

Presentation layers (terminal runner, HTTP/SSE API, MCP tools) only read
State.Messages and State.Phase and forward raw text.
*/
package realign
