package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/welda-labs/compintel/internal/pipeline"
	"github.com/welda-labs/compintel/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, "serve")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := newPipeline(st)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newServeMux(ctx, st, p),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// runStarter launches pipeline runs; TryStart refuses while one is
// already in flight.
type runStarter struct {
	running atomic.Bool
}

// TryStart reports whether the caller may begin a run. Callers must
// call Done when the run ends.
func (r *runStarter) TryStart() bool {
	return r.running.CompareAndSwap(false, true)
}

// Done marks the current run finished.
func (r *runStarter) Done() {
	r.running.Store(false)
}

func newServeMux(ctx context.Context, st store.RecordStore, p *pipeline.Pipeline) *http.ServeMux {
	starter := &runStarter{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
		status, err := pipeline.ReadStatus(r.Context(), st)
		if err != nil {
			zap.L().Error("summary read failed", zap.Error(err))
			http.Error(w, `{"error":"store unavailable"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	})

	mux.HandleFunc("POST /webhook/run", func(w http.ResponseWriter, r *http.Request) {
		if !starter.TryStart() {
			http.Error(w, `{"error":"a run is already in progress"}`, http.StatusConflict)
			return
		}

		// Run asynchronously; the server context keeps the run alive
		// after the webhook response.
		go func() {
			defer starter.Done()
			summary, err := p.Run(ctx)
			if err != nil {
				zap.L().Error("webhook run failed", zap.Error(err))
				return
			}
			zap.L().Info("webhook run complete",
				zap.String("run_id", summary.RunID),
				zap.Int("mappings_appended", summary.Resolve.Appended),
			)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	})

	return mux
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
