package cli

import (
	"context"
	"io"
	"os"

	"github.com/aretw0/realign"
	"github.com/aretw0/realign/internal/presentation/tui"
	"github.com/aretw0/realign/pkg/runner"
	"golang.org/x/term"
)

// ChatOptions contains the configuration for an interactive session.
type ChatOptions struct {
	SessionID string // resume instead of opening
	Keep      bool   // leave the session in the store on exit
	Plain     bool   // no colours, no markdown styling
	Quiet     bool   // no banner or system messages
	In        io.Reader
	Out       io.Writer
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// RunChat drives one interactive session in the terminal until the user
// quits, input ends or ctx is cancelled.
func RunChat(ctx context.Context, app *App, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if f, ok := opts.Out.(*os.File); ok && !IsTerminal(f) {
		opts.Plain = true
	}

	if !opts.Quiet {
		tui.PrintBanner(opts.Out, realign.Version)
	}

	renderer := tui.NewRenderer()
	if opts.Plain {
		renderer = tui.NewPlainRenderer()
	}

	handler := runner.NewTextHandler(opts.In, opts.Out,
		runner.WithTextHandlerRenderer(renderer),
		runner.WithMaxInputSize(app.Config.MaxInputSize),
	)

	runnerOpts := []runner.Option{
		runner.WithLogger(app.Logger),
		runner.WithInputHandler(handler),
		runner.WithKeepSession(opts.Keep),
	}
	if opts.SessionID != "" {
		runnerOpts = append(runnerOpts, runner.WithSessionID(opts.SessionID))
		app.Logger.Info("Session Resumed", "session_id", opts.SessionID)
	}

	r := runner.NewRunner(app.Assistant, runnerOpts...)
	runErr := r.Run(ctx)

	// If context was canceled (signal received), ensure runErr reflects it if it doesn't already
	if ctx.Err() != nil && runErr == nil {
		runErr = ctx.Err()
	}

	if !opts.Quiet && (opts.Keep || opts.SessionID != "") {
		var sig os.Signal
		if sc, ok := ctx.(*SignalContext); ok {
			sig = sc.Signal()
		}
		logCompletion(opts.Out, r.SessionID(), runErr, sig)
	}

	return handleExecutionError(runErr)
}
