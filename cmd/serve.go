// cmd/serve.go
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/markb/bodylog/internal/db"
	"github.com/markb/bodylog/internal/log"
	"github.com/markb/bodylog/internal/oauth"
	"github.com/markb/bodylog/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bodylog server",
	Long:  `Starts the HTTP server with auth and records API endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		port, _ := cmd.Flags().GetInt("port")
		host, _ := cmd.Flags().GetString("host")

		logFormat, _ := cmd.Flags().GetString("log-format")
		logLevel, _ := cmd.Flags().GetString("log-level")
		log.Init(&log.Config{Level: logLevel, Format: logFormat})

		jwtSecret := os.Getenv("BODYLOG_JWT_SECRET")
		if jwtSecret == "" {
			jwtSecret = "super-secret-jwt-key-please-change-in-production"
			log.Warn("using default JWT secret; set BODYLOG_JWT_SECRET in production")
		}

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database not found at %s. Run 'bodylog init' first", dbPath)
		}

		database, err := db.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		if err := database.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		cfg := server.Config{
			JWTSecret:        jwtSecret,
			AllowedRedirects: splitList(os.Getenv("BODYLOG_ALLOWED_REDIRECTS")),
		}

		clientID := os.Getenv("BODYLOG_GOOGLE_CLIENT_ID")
		clientSecret := os.Getenv("BODYLOG_GOOGLE_CLIENT_SECRET")
		if clientID != "" && clientSecret != "" {
			provider, err := oauth.NewGoogleProvider(cmd.Context(), oauth.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
			})
			if err != nil {
				return fmt.Errorf("failed to configure google provider: %w", err)
			}
			cfg.Provider = provider
		} else {
			log.Warn("google sign-in disabled; set BODYLOG_GOOGLE_CLIENT_ID and BODYLOG_GOOGLE_CLIENT_SECRET")
		}

		srv := server.New(database, cfg)
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Info("starting bodylog", "addr", addr)

		return srv.ListenAndServe(addr)
	},
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("db", "bodylog.db", "Path to database file")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("log-format", "text", "Log format: text or json")
	serveCmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
}
