package cli

import (
	"fmt"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/spf13/cobra"
)

func newConversationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversation",
		Aliases: []string{"conv"},
		Short:   "Inspect and manage stored conversations",
	}

	cmd.AddCommand(newConversationListCmd())
	cmd.AddCommand(newConversationNewCmd())
	cmd.AddCommand(newConversationShowCmd())
	cmd.AddCommand(newConversationDeleteCmd())

	return cmd
}

func newConversationListCmd() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp("")
			if err != nil {
				return err
			}
			defer a.Close()

			var convs []domain.Conversation
			if search != "" {
				convs, err = a.conversations.Search(search)
			} else {
				convs, err = a.conversations.List()
			}
			if err != nil {
				return err
			}

			if len(convs) == 0 {
				fmt.Println("No conversations.")
				return nil
			}
			for _, c := range convs {
				fmt.Printf("  %-24s %-32s model=%s messages=%d workflows=%d modified=%s\n",
					c.ID, c.Title, c.LLMID, c.MessageCount, c.WorkflowCount,
					c.Modified.Format(domain.TimeLayout))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "filter by keyword in title or description")
	return cmd
}

func newConversationNewCmd() *cobra.Command {
	var (
		title       string
		description string
		model       string
		apiKey      string
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create an empty conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp("")
			if err != nil {
				return err
			}
			defer a.Close()

			if apiKey != "" {
				if model == "" {
					return fmt.Errorf("--api-key requires --model")
				}
				if err := a.credentials.UpdateAPIKey(model, apiKey); err != nil {
					return err
				}
			}

			conv, err := a.manager.Create(model, title, description)
			if err != nil {
				return err
			}
			fmt.Println(conv.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "conversation title")
	cmd.Flags().StringVar(&description, "description", "", "conversation description")
	cmd.Flags().StringVar(&model, "model", "", "model identity (default from config)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "store an API key for the model identity")
	return cmd
}

func newConversationShowCmd() *cobra.Command {
	var includeInternal bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a conversation and its interaction history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp("")
			if err != nil {
				return err
			}
			defer a.Close()

			conv, err := a.conversations.Get(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Conversation: %s (%s)\n", conv.ID, conv.Title)
			if conv.Description != "" {
				fmt.Printf("  About:     %s\n", conv.Description)
			}
			fmt.Printf("  Model:     %s\n", conv.LLMID)
			fmt.Printf("  User:      %s\n", conv.UserID)
			fmt.Printf("  Messages:  %d\n", conv.MessageCount)
			fmt.Printf("  Workflows: %d\n", conv.WorkflowCount)
			fmt.Printf("  Modified:  %s\n", conv.Modified.Format(domain.TimeLayout))

			history, err := a.manager.History(conv.ID, includeInternal)
			if err != nil {
				return err
			}
			for _, in := range history {
				fmt.Println()
				fmt.Printf("[%s] %s\n", in.ID, in.Kind)
				fmt.Printf("> %s\n", in.RequestText)
				fmt.Println(in.ResponseText)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeInternal, "internal", false, "include internal classifier rows")
	return cmd
}

func newConversationDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp("")
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.manager.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
