package main

import (
	"context"
	"time"

	"github.com/aretw0/realign/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive wizard in the terminal",
	Long: `Opens a session and relays terminal input to the assistant.
Pick "Health Advice" (or type 1) to start the questionnaire.

Commands: /restart starts over, /quit leaves.
With --keep the session survives exit and can be resumed with --session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		// The terminal is the UI; only log when asked to.
		debug, _ := cmd.Flags().GetBool("debug")
		logger := cli.NewLogger("", debug)

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := cli.NewApp(sigCtx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.Close(ctx); err != nil {
				logger.Warn("Shutdown incomplete", "err", err)
			}
		}()

		opts := cli.ChatOptions{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.Keep, _ = cmd.Flags().GetBool("keep")
		opts.Plain, _ = cmd.Flags().GetBool("plain")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")

		return cli.RunChat(sigCtx, app, opts)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("session", "s", "", "Resume an existing session")
	chatCmd.Flags().Bool("keep", false, "Keep the session in the store after exit")
	chatCmd.Flags().Bool("plain", false, "Disable colours and markdown styling")
	chatCmd.Flags().BoolP("quiet", "q", false, "Suppress the banner and system messages")
}
