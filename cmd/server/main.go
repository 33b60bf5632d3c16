package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	persistlog "sunaba.world/internal/persistence/log"
	"sunaba.world/internal/persistence/store"
	"sunaba.world/internal/protocol"
	"sunaba.world/internal/sim/encoding"
	"sunaba.world/internal/sim/material"
	"sunaba.world/internal/sim/reaction"
	"sunaba.world/internal/sim/tuning"
	"sunaba.world/internal/sim/world"
	"sunaba.world/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 0, "override tuning seed (0 = use tuning.yaml)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	mats, err := material.Load(*configDir)
	if err != nil {
		logger.Fatalf("load materials: %v", err)
	}
	reacts, err := reaction.Load(*configDir, mats)
	if err != nil {
		logger.Fatalf("load reactions: %v", err)
	}
	logger.Printf("catalogs: %d materials (digest=%s) %d reactions", mats.Len(), mats.PaletteDigest()[:12], reacts.Len())

	worldDir := filepath.Join(*dataDir, "world")
	_ = os.MkdirAll(worldDir, 0o755)

	db, err := store.Open(filepath.Join(worldDir, "chunks.db"))
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer db.Close()

	// A persisted seed wins over tuning so resumed worlds stay deterministic.
	if persisted, ok, err := db.MetaInt("seed"); err != nil {
		logger.Fatalf("read meta: %v", err)
	} else if ok {
		if persisted != tune.Seed {
			logger.Printf("using persisted seed %d (tuning had %d)", persisted, tune.Seed)
		}
		tune.Seed = persisted
	} else if err := db.SetMetaInt("seed", tune.Seed); err != nil {
		logger.Fatalf("write meta: %v", err)
	}

	w, err := world.New(world.FromTuning(tune), mats, reacts)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	recs, err := db.LoadChunks()
	if err != nil {
		logger.Fatalf("load chunks: %v", err)
	}
	loaded := 0
	for _, r := range recs {
		ch, err := world.DecodeChunk(r.Key.CX, r.Key.CY, r.Payload, mats)
		if err != nil {
			logger.Printf("skip chunk (%d,%d): %v", r.Key.CX, r.Key.CY, err)
			continue
		}
		w.InstallChunk(ch)
		loaded++
	}
	if loaded > 0 {
		logger.Printf("resumed %d chunks from store", loaded)
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	editLog := persistlog.NewEditLogger(worldDir)
	defer editLog.Close()

	params := protocol.WorldParams{
		TickRateHz: tune.TickRateHz,
		ChunkSize:  world.ChunkSize,
		Seed:       tune.Seed,
		FloorY:     tune.FloorY,
	}

	var (
		statsMu   sync.Mutex
		lastStats world.TickStats
	)

	// Chunks dirtied since the last snapshot; acked per tick after the
	// broadcast, so the set is accumulated here.
	unsaved := map[world.ChunkKey]struct{}{}

	var wsSrv *ws.Server
	onTick := func(w *world.World, st world.TickStats) {
		statsMu.Lock()
		lastStats = st
		statsMu.Unlock()

		if err := tickLog.WriteTick(st); err != nil {
			logger.Printf("tick log: %v", err)
		}

		dirty := w.DirtyChunks()
		if len(dirty) > 0 {
			batch := protocol.ChunkBatchMsg{Type: protocol.TypeChunks, Tick: st.Tick}
			for _, k := range dirty {
				ids, ok := w.ChunkMaterials(k)
				if !ok {
					continue
				}
				batch.Chunks = append(batch.Chunks, protocol.ChunkDelta{
					CX:    k.CX,
					CY:    k.CY,
					Cells: encoding.EncodeRLE(ids),
				})
				unsaved[k] = struct{}{}
			}
			if b, err := json.Marshal(batch); err == nil {
				wsSrv.Broadcast(b)
			}
			w.AckDirty(dirty)
		}

		if tune.SnapshotEveryTicks > 0 && st.Tick%uint64(tune.SnapshotEveryTicks) == 0 && len(unsaved) > 0 {
			recs := make([]store.ChunkRecord, 0, len(unsaved))
			for k := range unsaved {
				payload, ok := w.EncodeChunk(k)
				if !ok {
					continue
				}
				recs = append(recs, store.ChunkRecord{Key: k, Tick: st.Tick, Payload: payload})
			}
			if err := db.SaveChunks(st.Tick, recs); err != nil {
				logger.Printf("save chunks: %v", err)
			} else {
				_ = db.SetMetaInt("tick", int64(st.Tick))
				logger.Printf("snapshot tick=%d chunks=%d", st.Tick, len(recs))
				unsaved = map[world.ChunkKey]struct{}{}
			}
		}
	}

	loop := world.NewLoop(w, tune.TickRateHz, onTick)
	wsSrv = ws.NewServer(loop, mats, params, logger)
	wsSrv.OnEdit = func(client string, op protocol.EditOp) {
		statsMu.Lock()
		tick := lastStats.Tick
		statsMu.Unlock()
		if err := editLog.WriteEdit(persistlog.EditEntry{
			Tick:     tick,
			Op:       op.Op,
			X:        op.X,
			Y:        op.Y,
			Material: op.Material,
			Amount:   op.Amount,
			Client:   client,
			TimeUTC:  time.Now().UTC().Format(time.RFC3339Nano),
		}); err != nil {
			logger.Printf("edit log: %v", err)
		}
	}

	go func() {
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("loop stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		statsMu.Lock()
		st := lastStats
		statsMu.Unlock()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP sunaba_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE sunaba_world_tick gauge\n")
		fmt.Fprintf(rw, "sunaba_world_tick %d\n", st.Tick)

		fmt.Fprintf(rw, "# HELP sunaba_world_loaded_chunks Loaded chunk count.\n")
		fmt.Fprintf(rw, "# TYPE sunaba_world_loaded_chunks gauge\n")
		fmt.Fprintf(rw, "sunaba_world_loaded_chunks %d\n", st.LoadedChunks)

		fmt.Fprintf(rw, "# HELP sunaba_world_active_chunks Chunks simulated last tick.\n")
		fmt.Fprintf(rw, "# TYPE sunaba_world_active_chunks gauge\n")
		fmt.Fprintf(rw, "sunaba_world_active_chunks %d\n", st.ActiveChunks)

		fmt.Fprintf(rw, "# HELP sunaba_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE sunaba_world_step_ms gauge\n")
		fmt.Fprintf(rw, "sunaba_world_step_ms %.3f\n", float64(st.Duration.Microseconds())/1000.0)
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (seed=%d tick_rate=%d)", *addr, tune.Seed, tune.TickRateHz)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
