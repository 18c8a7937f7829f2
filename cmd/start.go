package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"resource-store/core/loader"
	"resource-store/core/logger"
	"resource-store/core/middleware/auth"
	"resource-store/core/middleware/rayid"
	"resource-store/feature/erase"
	"resource-store/feature/integrity"
	"resource-store/feature/reindex"
	"resource-store/feature/resource"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const metricsPath = "/metrics"

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the resource store server",
	Long:  `Connects to the database, warms the identity caches and serves the admin API.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logg, err := loadRuntime()
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		eng, err := newEngine(cmd.Context(), cfg, logg)
		if err != nil {
			logg.Fatal("Failed to initialize persistence engine", zap.Error(err))
		}
		defer eng.Close()

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             cfg.Server.BodyLimit,
		})

		mgr := loader.NewManager()
		mgr.Register(resource.NewFeature(eng.resources, logg))
		mgr.Register(reindex.NewFeature(eng.reindexer, logg))
		mgr.Register(erase.NewFeature(eng.eraser, logg))
		mgr.Register(integrity.NewFeature(eng.integrity, logg))

		// RayID must be first to trace everything
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: []string{metricsPath}}))
		app.Get(metricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(eng.registry, promhttp.HandlerOpts{})))

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
