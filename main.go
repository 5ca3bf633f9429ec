package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RichardoC/thinkstream/internal/chat"
	"github.com/RichardoC/thinkstream/internal/config"
	"github.com/RichardoC/thinkstream/internal/db"
	"github.com/RichardoC/thinkstream/internal/llm"
	"github.com/RichardoC/thinkstream/internal/models"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "thinkstream",
		Short:        "Chat with reasoning models from the terminal",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file")

	root.AddCommand(newAskCmd(&configPath), newModelsCmd())
	return root
}

func newAskCmd(configPath *string) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Run one chat turn and print the answer",
		Long: "Runs a single turn through the chat pipeline against an in-memory store.\n" +
			"Reasoning is written to stderr and the answer to stdout.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := cfg.Logging.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			registry := llm.BuildRegistry(ctx, cfg.Providers, &http.Client{}, logger.Named("llm"))
			orch := chat.NewOrchestrator(db.NewMemoryStore(), registry, chat.NewLocalLocker(), cfg.Chat, logger.Named("chat"))

			in := chat.Input{Content: strings.Join(args, " "), Model: model}
			return ask(ctx, orch, in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "model id (see `thinkstream models`)")
	return cmd
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the available models",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, m := range llm.Models() {
				marker := " "
				if m.ID == llm.DefaultModelID {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-24s %-10s %s\n", marker, m.ID, m.Provider, m.Description)
			}
		},
	}
}

// ask streams a turn's reasoning to errOut and its content to out.
func ask(ctx context.Context, orch *chat.Orchestrator, in chat.Input, out, errOut io.Writer) error {
	sink := chat.NewChannelSink(64)
	done := make(chan error, 1)
	go func() {
		done <- orch.HandleUserMessage(ctx, in, sink)
	}()

	reasoning := false
	for ev := range sink.Events() {
		switch ev.Type {
		case models.EventReasoning:
			reasoning = true
			fmt.Fprint(errOut, ev.Data)
		case models.EventContent:
			if reasoning {
				fmt.Fprintln(errOut)
				reasoning = false
			}
			fmt.Fprint(out, ev.Data)
		case models.EventComplete:
			fmt.Fprintln(out)
		case models.EventError:
			fmt.Fprintf(errOut, "error: %v\n", ev.Data)
		}
	}
	return <-done
}
