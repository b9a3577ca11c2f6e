package root

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"levelup/internal/api"
	"levelup/internal/engine"
	"levelup/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			if a.cfg.Server.Mode != "" {
				gin.SetMode(a.cfg.Server.Mode)
			}

			m := metrics.New()
			m.SetStats(a.svc.Stats())
			unsubscribe := a.svc.Events().Subscribe(func(ev engine.Event) {
				m.Observe(ev)
			})
			defer unsubscribe()

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewRouter(a.svc, m, a.log.Named("api")),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				a.log.Info("server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				a.log.Info("shutting down server")
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
