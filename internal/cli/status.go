package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MahdiFarnaghi/intelli-geo/internal/config"
	"github.com/MahdiFarnaghi/intelli-geo/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show IntelliGeo status and configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("IntelliGeo %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:    %s\n", paths.Config)
			fmt.Printf("Data:      %s\n", paths.Data)
			fmt.Printf("Artifacts: %s\n", paths.Artifacts)
			fmt.Printf("Logs:      %s\n", paths.Logs)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:    error loading: %v\n", err)
				return nil
			}

			auth := "off"
			if cfg.Gateway.Auth.Token != "" {
				auth = "token"
			}
			fmt.Printf("Gateway:   port=%d bind=%s auth=%s\n", cfg.Gateway.Port, cfg.Gateway.Bind, auth)
			fmt.Printf("Session:   user=%s mode=%s timeout=%ds\n",
				cfg.Session.UserID, cfg.Session.DefaultMode, cfg.Session.TurnTimeoutSeconds)
			fmt.Printf("Retrieval: %s (docs=%d examples=%d)\n",
				cfg.Retrieval.BaseURL, cfg.Retrieval.DocTopK, cfg.Retrieval.ExampleTopK)

			if len(cfg.LLM.Providers) > 0 {
				ids := make([]string, 0, len(cfg.LLM.Providers))
				for id := range cfg.LLM.Providers {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				fmt.Printf("Models:    %s (default %s)\n", strings.Join(ids, ", "), cfg.LLM.Default)
			} else {
				fmt.Println("Models:    (none configured)")
			}
			return nil
		},
	}
}
