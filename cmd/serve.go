package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/xero-bills-converter/internal/logger"
	"github.com/ginjaninja78/xero-bills-converter/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload page and convert uploaded exports",
	Long: `Serve starts an HTTP server with an upload form at / and the conversion
endpoint at /upload. Uploaded files are kept in the upload directory and the
last conversion in the processed directory as xero_bills_export.csv.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().String("upload-dir", "", "Directory for uploaded files")
	serveCmd.Flags().String("processed-dir", "", "Directory for the converted file")

	bindFlag(serveCmd, "http_addr", "addr")
	bindFlag(serveCmd, "upload_dir", "upload-dir")
	bindFlag(serveCmd, "processed_dir", "processed-dir")
}

func runServe(ctx context.Context) error {
	layouts, err := loadLayouts()
	if err != nil {
		return err
	}

	srv := server.New(appConfig, layouts, logger.WithComponent("server"))

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		if err := srv.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
