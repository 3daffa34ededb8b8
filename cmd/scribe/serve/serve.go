package servecmder

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/scribe/pkg/config"
	"github.com/papercomputeco/scribe/pkg/logger"
	"github.com/papercomputeco/scribe/server"
)

const serveLongDesc string = `Run the history inspection server.

Exposes saved conversation histories over HTTP:
  GET    /health
  GET    /models
  GET    /history?document=<path>
  DELETE /history?document=<path>

Examples:
  scribe serve
  scribe serve --listen :6061`

const serveShortDesc string = "Run the history inspection server"

type serveCommander struct {
	configPath string
	listenAddr string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config file")
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", "", "Address to listen on (overrides config)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	log := logger.NewLogger(c.debug)
	defer log.Sync()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.listenAddr != "" {
		cfg.ListenAddr = c.listenAddr
	}

	srv := server.New(server.Config{ListenAddr: cfg.ListenAddr}, log)

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Warn("shutdown failed", zap.Error(err))
		}
	}()

	return srv.Run()
}
