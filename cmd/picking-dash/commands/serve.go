package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"picking-dash/internal/metrics"
	"picking-dash/internal/web"
)

var (
	serveAddr string
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard page and its JSON API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides PICKING_HTTP_ADDR)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "open the dashboard in the default browser once it is ready")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpCfg := cfg.HTTP
	if serveAddr != "" {
		httpCfg.Addr = serveAddr
	}

	rec := metrics.New()
	srv := web.NewServer(newService(rec), web.Options{
		HTTP:    httpCfg,
		Metrics: rec,
		Logger:  log.Logger,
		Version: Version,
	})

	ln, err := net.Listen("tcp", httpCfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", httpCfg.Addr, err)
	}
	url := "http://" + ln.Addr().String()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})
	if serveOpen || cfg.OpenBrowser {
		g.Go(func() error {
			openWhenReady(gctx, url)
			return nil
		})
	}

	log.Info().Str("url", url).Msg("Dashboard available")
	return g.Wait()
}

// openWhenReady opens url once the health endpoint answers. Failures are logged, never fatal.
func openWhenReady(ctx context.Context, url string) {
	readyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := web.WaitReady(readyCtx, url); err != nil {
		log.Warn().Err(err).Msg("Dashboard not ready, skipping browser")
		return
	}
	browser.Stdout = os.Stderr
	if err := browser.OpenURL(url); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to open browser")
	}
}
