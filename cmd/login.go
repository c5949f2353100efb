// cmd/login.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/markb/bodylog/client"
	"github.com/spf13/cobra"
)

// newClient builds the SDK client backed by a file store under the
// user's config directory, so sessions survive between invocations.
func newClient(serverURL, clientID, redirectURI string) (*client.Client, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config dir: %w", err)
	}
	kv, err := client.NewFileKV(filepath.Join(configDir, "bodylog"))
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	return client.New(client.Config{
		BaseURL:     serverURL,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		KV:          kv,
	})
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with Google",
	Long:  `Opens a browser-based Google sign-in and stores the resulting session locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, _ := cmd.Flags().GetString("server")
		listen, _ := cmd.Flags().GetString("listen")
		clientID, _ := cmd.Flags().GetString("client-id")
		if clientID == "" {
			clientID = os.Getenv("BODYLOG_GOOGLE_CLIENT_ID")
		}
		if clientID == "" {
			return errors.New("no OAuth client id: pass --client-id or set BODYLOG_GOOGLE_CLIENT_ID")
		}

		redirectURI := fmt.Sprintf("http://%s/auth/callback", listen)

		c, err := newClient(serverURL, clientID, redirectURI)
		if err != nil {
			return err
		}

		authURL, err := c.BeginLogin()
		if err != nil {
			return fmt.Errorf("failed to start login: %w", err)
		}

		fmt.Println("Open this URL in your browser to sign in:")
		fmt.Println()
		fmt.Println("  " + authURL)
		fmt.Println()

		results := make(chan client.CallbackResult, 1)
		mux := http.NewServeMux()
		mux.HandleFunc("/auth/callback", func(w http.ResponseWriter, r *http.Request) {
			result := c.HandleCallback(r.Context(), r.URL.String())
			if result.OK {
				fmt.Fprintln(w, "Signed in. You can close this tab.")
			} else {
				fmt.Fprintf(w, "Sign-in failed: %s. You can close this tab.\n", result.Err.Code)
			}
			results <- result
		})

		srv := &http.Server{Addr: listen, Handler: mux}
		go srv.ListenAndServe()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()

		result := <-results
		if !result.OK {
			return fmt.Errorf("login failed: %s", result.Err)
		}

		fmt.Printf("Signed in as %s (%s)\n", result.Session.User.Name, result.Session.User.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().String("server", "http://localhost:8080", "bodylog server URL")
	loginCmd.Flags().String("listen", "127.0.0.1:9094", "Local address for the OAuth callback")
	loginCmd.Flags().String("client-id", "", "Google OAuth client id")
}
