package main

import (
	"fmt"
	"os"

	"github.com/CognitionIES/teamsync/internal/cfg"
	"github.com/CognitionIES/teamsync/internal/database"
	"github.com/CognitionIES/teamsync/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "teamsync",
	Short: "TeamSync - назначение работ и учёт выполнения",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		conf := cfg.LoadConfig()
		logging.Init(conf.LogLevel, conf.LogFormat, conf.LogReportCaller)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Создать или обновить схему базы",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := cfg.LoadConfig()
		logger := logging.Component("migrate")

		db, err := database.Open(conf)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if err := database.Migrate(db); err != nil {
			return err
		}
		logger.Info("schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
