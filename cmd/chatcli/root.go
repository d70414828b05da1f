package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"chatd/internal/app"
	"chatd/internal/config"
)

const defaultServer = "http://127.0.0.1:5000"

// buildRootCmd constructs the command tree reading from in and printing to out.
func buildRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var configPath, logLevel, server string

	root := &cobra.Command{
		Use:           "chatcli",
		Short:         "Talk to the chat model locally or through a running chatd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	root.SetOut(out)

	chatCmd := &cobra.Command{
		Use:     "chat",
		Short:   "Interactive chat with an in-process engine",
		Example: "  chatcli chat --config chatd.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(configPath)
			if err != nil {
				return err
			}
			log := app.NewLogger(cmd.ErrOrStderr(), logLevel)
			stack, err := app.Build(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = stack.Close(ctx)
			}()
			r := &repl{gen: stack.Session, maxHistory: cfg.Generation.MaxHistory, out: out}
			interrupts := make(chan os.Signal, 1)
			signal.Notify(interrupts, os.Interrupt)
			defer signal.Stop(interrupts)
			return r.run(cmd.Context(), in, interrupts)
		},
	}
	chatCmd.Flags().StringVar(&configPath, "config", os.Getenv("CHATD_CONFIG"), "Path to a .yaml, .json or .toml config file")

	askCmd := &cobra.Command{
		Use:     "ask MESSAGE...",
		Short:   "Send messages to a running chatd and stream the replies",
		Long:    "Each message is sent in turn within one session, so later messages see the earlier exchange.",
		Example: "  chatcli ask --server http://127.0.0.1:5000 \"Suggest a warm-up\" \"Make it shorter\"",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jar, err := cookiejar.New(nil)
			if err != nil {
				return err
			}
			c := &remote{base: server, http: &http.Client{Jar: jar}, out: out}
			for _, msg := range args {
				if err := c.ask(cmd.Context(), msg); err != nil {
					return err
				}
			}
			return nil
		},
	}
	askCmd.Flags().StringVar(&server, "server", defaultServer, "chatd base URL")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Print the engine status of a running chatd",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &remote{base: server, http: http.DefaultClient, out: out}
			return c.health(cmd.Context())
		},
	}
	healthCmd.Flags().StringVar(&server, "server", defaultServer, "chatd base URL")

	root.AddCommand(chatCmd, askCmd, healthCmd)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
	})
	return root
}
