package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"u8sim/internal/persistence/archive"
	"u8sim/internal/persistence/snapshot"
	"u8sim/internal/sim/scenario"
	"u8sim/internal/transport/observer"
)

var (
	flagAddr       string
	flagLoadLatest bool
	flagSnapshot   string
	flagPprof      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the world loop with observer and admin endpoints",
	Long: `Run the world at its tick rate. Tick digests go to the tick log and the
sqlite index; autosaves are written every save_every_ticks.

Endpoints (admin and observer only answer loopback clients):
  GET  /healthz
  GET  /metrics
  GET  /admin/v1/state
  POST /admin/v1/snapshot[?slot=name]
  GET  /admin/v1/observer/bootstrap
  GET  /admin/v1/observer/ws

Examples:
  server serve
  server serve --addr :9090 --snapshot ./data/worlds/world_1/slots/demo/save.u8s`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "127.0.0.1:8080", "HTTP listen address")
	serveCmd.Flags().BoolVar(&flagLoadLatest, "load-latest", true, "Resume from the newest autosave when --snapshot is empty")
	serveCmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "Save to resume from")
	serveCmd.Flags().StringVar(&flagScenario, "scenario", "", "Scenario for a fresh world (default: <configs>/scenario.yaml)")
	serveCmd.Flags().BoolVar(&flagPprof, "pprof", false, "Serve /debug/pprof")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	resume := flagSnapshot
	if resume == "" && flagLoadLatest {
		resume = latestAutosave(filepath.Join(flagDataDir, "worlds", flagWorldID))
	}
	rt, err := newRuntime(logger, resume, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	w := rt.World

	if resume == "" {
		path := flagScenario
		if path == "" {
			path = filepath.Join(flagConfigDir, "scenario.yaml")
		}
		sc, err := scenario.Load(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Info("no scenario, starting empty", "path", path)
		case err != nil:
			return err
		default:
			if _, _, err := sc.Run(w); err != nil {
				return err
			}
		}
	}

	go rt.writeSnapshots(ctx)

	worldDone := make(chan error, 1)
	go func() {
		defer reportPanic(flagWorldID, w.PublishedTick)
		worldDone <- w.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(rw, "# HELP u8sim_world_tick Last completed world tick.\n")
		fmt.Fprintf(rw, "# TYPE u8sim_world_tick gauge\n")
		fmt.Fprintf(rw, "u8sim_world_tick{world=%q} %d\n", flagWorldID, w.PublishedTick())
		fmt.Fprintf(rw, "# HELP u8sim_audio_channels Busy sound effect channels.\n")
		fmt.Fprintf(rw, "# TYPE u8sim_audio_channels gauge\n")
		fmt.Fprintf(rw, "u8sim_audio_channels{world=%q} %d\n", flagWorldID, rt.Audio.Playing())
		if rt.idx != nil {
			fmt.Fprintf(rw, "# HELP u8sim_index_dropped_total Index writes dropped on a full queue.\n")
			fmt.Fprintf(rw, "# TYPE u8sim_index_dropped_total counter\n")
			fmt.Fprintf(rw, "u8sim_index_dropped_total{world=%q} %d\n", flagWorldID, rt.idx.Dropped())
		}
	})

	mux.HandleFunc("/admin/v1/state", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"world_id": flagWorldID,
			"game":     w.Rules().Game().String(),
			"tick":     w.PublishedTick(),
		})
	}))
	mux.HandleFunc("/admin/v1/snapshot", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel2()
		tick, err := w.RequestSnapshot(ctx2)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
			return
		}
		resp := map[string]any{"ok": true, "tick": tick}
		if slot := r.URL.Query().Get("slot"); slot != "" {
			if path, err := waitForAutosave(ctx2, rt.worldDir, tick); err != nil {
				resp["slot_error"] = err.Error()
			} else if hdr, err := snapshot.ReadHeader(path); err != nil {
				resp["slot_error"] = err.Error()
			} else if dst, err := archive.ArchiveSlot(rt.worldDir, slot, path, hdr); err != nil {
				resp["slot_error"] = err.Error()
			} else {
				resp["slot"] = dst
			}
		}
		_ = json.NewEncoder(rw).Encode(resp)
	}))

	obsSrv := observer.NewServer(w, logger.WithPrefix("observer"))
	mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())

	if flagPprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              flagAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		select {
		case <-ctx.Done():
		case err := <-worldDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("world stopped", "err", err)
			}
			cancel()
		}
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", "addr", flagAddr, "world", flagWorldID, "ruleset", rt.Tune.Ruleset)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// waitForAutosave polls until the snapshot writer has written tick's save.
func waitForAutosave(ctx context.Context, worldDir string, tick uint64) (string, error) {
	path := archive.AutosavePath(worldDir, tick)
	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
