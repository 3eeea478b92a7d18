package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizloop-service/internal/app"
)

// NewShareCmd prints the self-contained share link for a project.
func NewShareCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "share <project-id>",
		Short: "Print a share link that embeds the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.Close()

			baseURL := d.cfg.Server.BaseURL
			if baseURL == "" {
				baseURL = "http://localhost:" + port
			}
			link, err := app.NewAuthoringService(d.store, nil, baseURL, d.log).Share(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link.URL)
			return nil
		},
	}
}
