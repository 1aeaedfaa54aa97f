package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"carprice/config"
	qhttp "carprice/http"
	"carprice/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web form",
	Long: `Start the web server with the submission form and the prediction endpoint.

Examples:
  carprice serve              # port from config (default 5000)
  carprice serve --port 8080  # override the port`,
	RunE: runServe,
}

var (
	servePort   int
	watchConfig bool
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&watchConfig, "watch-config", true, "Reload the log level when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	hub := qhttp.NewHub(rt.log.Named("ws"))
	if err := rt.openApp(ctx, hub); err != nil {
		return err
	}
	go hub.Run()

	if watchConfig {
		go func() {
			err := config.Watch(ctx, configPath, func(cfg *config.Config) {
				if err := logger.SetLevel(rt.level, cfg.Log.Level); err != nil {
					rt.log.Warn("apply log level", zap.String("level", cfg.Log.Level), zap.Error(err))
				}
			}, rt.log)
			if err != nil {
				rt.log.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

	// draw the initial plot so the first page view has an image
	if err := rt.app.RenderPlot(); err != nil {
		rt.log.Error("render plot", zap.Error(err))
	}

	serverCfg := qhttp.DefaultServerConfig()
	serverCfg.Port = rt.cfg.HTTP.Port
	if servePort > 0 {
		serverCfg.Port = servePort
	}
	serverCfg.Timeout = rt.cfg.HTTP.Timeout
	serverCfg.MaxBodyBytes = rt.cfg.HTTP.MaxBodyBytes
	serverCfg.StaticDir = rt.cfg.Storage.StaticDir
	serverCfg.PlotURL = rt.cfg.PlotURL()

	server := qhttp.NewServer(serverCfg, qhttp.Deps{
		App:         rt.app,
		Hub:         hub,
		TrainingLog: rt.store,
		Logger:      rt.log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
		rt.log.Info("shutting down")
	}

	if err := server.Stop(); err != nil {
		rt.log.Warn("server forced to shutdown", zap.Error(err))
	}
	return nil
}
