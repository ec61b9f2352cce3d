package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/grantaxiom/internal/server"
	"github.com/ppiankov/grantaxiom/internal/session"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workbench HTTP API",
	Long: `Serve exposes workbench sessions over HTTP/JSON with WebSocket chat.

Each session holds a proposal, a reference list, the latest audit report,
a chat transcript and the latest simulation. Idle sessions expire after
session.ttl.

Example:
  grantaxiom serve
  grantaxiom serve --addr 0.0.0.0:8787 --seed-sample`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().Bool("seed-sample", false, "start new sessions with the demo proposal and references")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("session.seed_sample", serveCmd.Flags().Lookup("seed-sample"))
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	wb, err := a.workbench()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(wb, session.NewStore(a.cfg.Session), a.ingester(), a.cfg.Server, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		if !wb.Provider().IsAvailable(gctx) {
			a.logger.Warn("oracle provider not available; requests will use fallbacks until it is",
				zap.String("provider", wb.Provider().Name()))
		}
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
