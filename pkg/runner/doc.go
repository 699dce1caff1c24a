/*
Package runner drives an assistant session from a line-oriented terminal.

The Runner opens a session (or resumes one with WithSessionID), prints the
bot side of the conversation through a TextHandler and forwards every line
the user types. Numbered quick replies select the matching option. While an
advice or chat request is outstanding the runner waits for its result before
prompting again.

# Usage

	r := runner.NewRunner(assistant,
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout,
			runner.WithTextHandlerRenderer(tui.NewRenderer()),
		)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}

Input is cleaned by SanitizeInput before it reaches the engine.
*/
package runner
