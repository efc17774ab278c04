package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/pipeline"
	"github.com/teranos/capgen/server"
)

// ServeCmd starts the HTTP server
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the capgen HTTP/WebSocket server",
	Long: `Serve taxonomy generation over HTTP:

  GET /generate-capabilities?industry=X          full CSV (capabilities.csv)
  GET /generate-capabilities/outline?industry=X  streamed L0×L1 outline
  GET /ws/generate?industry=X                    WebSocket progress + CSV
  GET /health`,
	RunE: runServe,
}

var servePort int

func init() {
	ServeCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, closeClient, err := newClient(ctx, cfg, cfg.Generator.Provider)
	if err != nil {
		return err
	}
	defer closeClient()

	srv := server.New(client, pipeline.ConfigFromAM(cfg), cfg.Server, logger.Logger.Named("server"))

	pterm.Info.Printfln("Starting capgen server on port %d (Ctrl+C to stop)", port)
	if err := srv.Start(ctx, port); err != nil {
		return err
	}
	pterm.Success.Println("Server stopped cleanly")
	return nil
}
