package cmd

import (
	"encoding/json"
	"log"
	"os"

	"resource-store/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var integrityFlags struct {
	purge   bool
	confirm bool
}

// integrityCmd compares offloaded payload keys with the object store.
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check offloaded payloads against the object store",
	Long: `Lists resource versions whose payload key has no object and objects no resource
version references. With --purge --confirm orphaned objects older than the grace
period are removed.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logg, err := loadRuntime()
		if err != nil {
			log.Fatalf("Failed to check integrity: %v", err)
		}
		defer logg.Sync()

		if !cfg.Storage.Enabled {
			logg.Fatal("Object storage is disabled, there is nothing to check")
		}

		eng, err := newEngine(cmd.Context(), cfg, logg)
		if err != nil {
			logg.Fatal("Failed to initialize persistence engine", zap.Error(err))
		}
		defer eng.Close()

		opts := integrity.Options{DoPurge: integrityFlags.purge, Confirmed: integrityFlags.confirm}
		var (
			plan     *integrity.Plan
			executed int
		)
		if integrityFlags.purge {
			plan, executed, err = eng.integrity.Purge(cmd.Context(), opts)
		} else {
			plan, err = eng.integrity.Check(cmd.Context(), opts)
		}
		if err != nil {
			logg.Fatal("Integrity check failed", zap.Error(err))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(plan)
		logg.Info("Integrity check finished",
			zap.Int("missing_storage", plan.Summary.MissingStorage),
			zap.Int("orphaned", plan.Summary.Orphaned),
			zap.Int("purged", executed),
		)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.Flags().BoolVar(&integrityFlags.purge, "purge", false, "plan removal of orphaned objects")
	integrityCmd.Flags().BoolVar(&integrityFlags.confirm, "confirm", false, "execute the planned removals")
}
