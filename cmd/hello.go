package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHelloCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "hello",
		Short: "Check connectivity and credentials against the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			message, err := app.client.Hello(cmd.Context())
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"message": message})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), message)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
