package cli

import (
	"fmt"

	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
	"github.com/spf13/cobra"
)

func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Inspect stored prompt templates",
	}

	cmd.AddCommand(newPromptListCmd())
	return cmd
}

func newPromptListCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompt templates for a model identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp("")
			if err != nil {
				return err
			}
			defer a.Close()

			if model == "" {
				model = store.DefaultLLMID
			}
			templates, err := a.prompts.List(model)
			if err != nil {
				return err
			}

			if len(templates) == 0 {
				fmt.Printf("No prompt templates for %s.\n", model)
				return nil
			}
			for _, t := range templates {
				fmt.Printf("  %-40s type=%-24s version=%d\n", t.ID, t.Type, t.Version)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "model identity (default shared templates)")
	return cmd
}
