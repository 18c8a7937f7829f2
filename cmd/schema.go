package cmd

import (
	"log"

	"resource-store/core/database"
	"resource-store/core/dialect"
	"resource-store/core/schema"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// schemaCmd creates the schema for the configured resource types.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the database schema",
	Long: `Creates the global tables, the tables of every configured resource type, the
shared sequence and, where supported, the erase_resource routine.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logg, err := loadRuntime()
		if err != nil {
			log.Fatalf("Failed to create schema: %v", err)
		}
		defer logg.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}
		d, err := dialect.ForDB(db)
		if err != nil {
			logg.Fatal("Unsupported database", zap.Error(err))
		}
		if err := schema.Bootstrap(cmd.Context(), db, d, cfg.Database.ResourceTypes); err != nil {
			logg.Fatal("Failed to create schema", zap.Error(err))
		}
		logg.Info("Schema ready",
			zap.String("dialect", d.Name),
			zap.Strings("resource_types", cfg.Database.ResourceTypes),
		)
	},
}

func init() {
	RootCmd.AddCommand(schemaCmd)
}
