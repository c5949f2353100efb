// cmd/whoami.go
package cmd

import (
	"fmt"

	"github.com/markb/bodylog/client"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity of the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, _ := cmd.Flags().GetString("server")

		c, err := newClient(serverURL, "", "")
		if err != nil {
			return err
		}

		user, err := c.Whoami(cmd.Context())
		if err != nil {
			switch client.CodeOf(err) {
			case client.TokenExpired:
				return fmt.Errorf("session expired; run 'bodylog login'")
			case client.InvalidToken:
				return fmt.Errorf("not signed in; run 'bodylog login'")
			default:
				return fmt.Errorf("could not reach server: %w", err)
			}
		}

		fmt.Printf("%s (%s)\n", user.Name, user.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().String("server", "http://localhost:8080", "bodylog server URL")
}
