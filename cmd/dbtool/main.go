package main

import (
	"commute-area-service/internal/config"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dbtool",
	Short: "Maintain the persisted commute-area record",
	Long:  "Initializes the schema and inspects, imports, clears or prunes the commute-area record and its caches.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("key", "", "record key (defaults to store.key)")
	rootCmd.AddCommand(initCmd, showCmd, importCmd, clearCmd, pruneCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// recordKey resolves the --key flag against the configured key.
func recordKey(cmd *cobra.Command) string {
	if k, _ := cmd.Flags().GetString("key"); k != "" {
		return k
	}
	return cfg.Store.Key
}
