// cmd/logout.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, _ := cmd.Flags().GetString("server")

		c, err := newClient(serverURL, "", "")
		if err != nil {
			return err
		}

		c.Sessions().Initialize(cmd.Context())
		c.Sessions().Logout(cmd.Context())

		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	logoutCmd.Flags().String("server", "http://localhost:8080", "bodylog server URL")
}
