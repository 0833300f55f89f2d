package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"note-sync/models"
	"note-sync/service"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the feed through the paged view",
	Long: `Open the paged view over the local cache, refresh it from the server and keep
reading past the end of the window so that further pages are fetched on demand.
Every state change is printed as one line. When NOTE_METRICS_ADDR is set,
Prometheus metrics are served on /metrics while watching.

Examples:
  note-sync watch                 # Follow until interrupted
  note-sync watch --exit-at-end   # Stop once the server has no more pages
  note-sync watch --all           # Include notes still being enriched`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Bool("exit-at-end", false, "exit once the end of the feed is reached")
	watchCmd.Flags().Bool("all", false, "include notes that are not enriched yet")
	watchCmd.Flags().Bool("no-refresh", false, "skip the initial refresh and start from the cache")
}

// errEndReached stops the watch loop without reporting a failure.
var errEndReached = errors.New("end of feed reached")

func runWatch(cmd *cobra.Command, args []string) error {
	exitAtEnd, _ := cmd.Flags().GetBool("exit-at-end")
	all, _ := cmd.Flags().GetBool("all")
	noRefresh, _ := cmd.Flags().GetBool("no-refresh")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApplication(ctx, func(app *application) error {
		pager := service.NewNotePager(app.store, app.mediator, service.PagerConfig{
			Feed:               cfg.Paging.Feed,
			PageSize:           cfg.EffectivePageSize(),
			PrefetchDistance:   cfg.Paging.PrefetchDistance,
			IncludePending:     all,
			SkipInitialRefresh: noRefresh,
		}, logger)
		if err := pager.Start(ctx); err != nil {
			return fmt.Errorf("start pager: %w", err)
		}
		defer pager.Close()

		g, gctx := errgroup.WithContext(ctx)

		if cfg.Metrics.Addr != "" {
			srv := newMetricsServer(cfg.Metrics.Addr)
			g.Go(func() error {
				logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		}

		g.Go(func() error {
			return followPager(gctx, cmd, pager, exitAtEnd)
		})

		err := g.Wait()
		if errors.Is(err, errEndReached) {
			return nil
		}
		return err
	})
}

// followPager prints every snapshot and reads the last item whenever both
// boundaries are idle, which makes the pager grow until the feed ends.
func followPager(ctx context.Context, cmd *cobra.Command, pager *service.NotePager, exitAtEnd bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-pager.Updates():
			fmt.Fprintf(cmd.OutOrStdout(), "items=%d placeholders=%d refresh=%s append=%s end=%t\n",
				len(snap.Items), snap.Placeholders, statusLabel(snap.Refresh), statusLabel(snap.Append), snap.EndOfPaginationReached)

			if snap.Refresh.Status == models.LoadFailed {
				return snap.Refresh.Err
			}
			if snap.Append.Status == models.LoadFailed {
				return snap.Append.Err
			}
			if snap.Refresh.Status != models.LoadIdle || snap.Append.Status != models.LoadIdle {
				continue
			}
			if snap.EndOfPaginationReached {
				if exitAtEnd {
					return errEndReached
				}
				continue
			}
			pager.ItemAt(max(len(snap.Items)-1, 0))
		}
	}
}

// statusLabel colors non-idle states; color is disabled automatically when stdout is not a terminal.
func statusLabel(state models.LoadState) string {
	switch state.Status {
	case models.LoadLoading:
		return color.YellowString(state.Status.String())
	case models.LoadFailed:
		return color.RedString(state.Status.String())
	default:
		return state.Status.String()
	}
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
