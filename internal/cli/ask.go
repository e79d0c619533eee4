package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		conversationID string
		model          string
		mode           string
		envFile        string
	)

	cmd := &cobra.Command{
		Use:   "ask <request>",
		Short: "Run a single assistant turn from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			input := strings.Join(args, " ")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			id, outcomes, err := a.manager.Submit(ctx, conversationID, model, input, domain.ResponseMode(mode))
			if err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case out := <-outcomes:
				if out.Err != nil && out.Result == nil {
					return out.Err
				}
				fmt.Println(out.Result.Response)
				if out.ArtifactPath != "" {
					fmt.Printf("\nWorkflow written to %s\n", out.ArtifactPath)
				}
				if out.Err != nil {
					fmt.Printf("\nWarning: %v\n", out.Err)
				}
				fmt.Printf("\nConversation: %s\n", id)
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue an existing conversation")
	cmd.Flags().StringVar(&model, "model", "", "model identity to use (default from config)")
	cmd.Flags().StringVar(&mode, "mode", "", "response mode (visual, code, toolbox)")
	cmd.Flags().StringVar(&envFile, "environment", "", "JSON snapshot of the host project to preload")

	return cmd
}
