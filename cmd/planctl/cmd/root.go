package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	storeID   string
	dbURL     string
)

var rootCmd = &cobra.Command{
	Use:          "planctl",
	Short:        "StorePilot bulk-edit operator CLI",
	Long:         `planctl previews, applies and reverts bulk-edit plans against a StorePilot server, and manages its mirror database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("STOREPILOT_URL", "http://localhost:8080"), "StorePilot server base URL")
	rootCmd.PersistentFlags().StringVar(&storeID, "store", os.Getenv("STORE_ID"), "Nuvemshop store ID")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", os.Getenv("DATABASE_URL"), "database connection URL (sqlite://path or postgres://...)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
