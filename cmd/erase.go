package cmd

import (
	"encoding/json"
	"log"
	"os"

	"resource-store/feature/erase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var eraseFlags struct {
	resourceType string
	logicalID    string
	version      int
}

// eraseCmd physically removes a resource, or one of its versions.
var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase a resource or a single resource version",
	Long: `Removes a resource and all of its versions, search parameters and offloaded
payloads. With --version only that version's payload is removed. The erase is
recorded in the erased resources audit table.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logg, err := loadRuntime()
		if err != nil {
			log.Fatalf("Failed to erase: %v", err)
		}
		defer logg.Sync()

		req := erase.Request{ResourceType: eraseFlags.resourceType, LogicalID: eraseFlags.logicalID}
		if cmd.Flags().Changed("version") {
			req.Version = &eraseFlags.version
		}

		eng, err := newEngine(cmd.Context(), cfg, logg)
		if err != nil {
			logg.Fatal("Failed to initialize persistence engine", zap.Error(err))
		}
		defer eng.Close()

		rec, err := eng.eraser.Erase(cmd.Context(), req)
		if err != nil {
			logg.Fatal("Erase failed", zap.Error(err))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rec)
	},
}

func init() {
	RootCmd.AddCommand(eraseCmd)
	eraseCmd.Flags().StringVar(&eraseFlags.resourceType, "type", "", "resource type")
	eraseCmd.Flags().StringVar(&eraseFlags.logicalID, "id", "", "logical id")
	eraseCmd.Flags().IntVar(&eraseFlags.version, "version", 0, "erase only this version")
	_ = eraseCmd.MarkFlagRequired("type")
	_ = eraseCmd.MarkFlagRequired("id")
}
