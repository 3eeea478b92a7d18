package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quizloop-service/internal/app"
)

// NewRosterCmd manages the respondent roster from the command line.
func NewRosterCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Import or list the respondent roster",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.csv>",
		Short: "Replace the roster with a CSV file whose header is 名前 or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			roster, err := app.NewRosterService(d.store, d.log).Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d respondents\n", len(roster))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.Close()

			roster, err := app.NewRosterService(d.store, d.log).List(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range roster {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.ID, r.Name)
			}
			return nil
		},
	})
	return cmd
}
