package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"sunaba.world/internal/persistence/store"
	"sunaba.world/internal/sim/material"
	"sunaba.world/internal/sim/reaction"
	"sunaba.world/internal/sim/tuning"
	"sunaba.world/internal/sim/world"
)

// replay rebuilds a world from the chunk store and steps it offline,
// printing the state digest at intervals. Two runs over the same store
// and configs must print identical digests.
func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		ticks      = flag.Int("ticks", 300, "ticks to simulate")
		every      = flag.Int("every", 30, "print digest every N ticks")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[replay] ", log.LstdFlags)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	mats, err := material.Load(*configDir)
	if err != nil {
		logger.Fatalf("load materials: %v", err)
	}
	reacts, err := reaction.Load(*configDir, mats)
	if err != nil {
		logger.Fatalf("load reactions: %v", err)
	}

	db, err := store.Open(filepath.Join(*dataDir, "world", "chunks.db"))
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer db.Close()

	if seed, ok, err := db.MetaInt("seed"); err != nil {
		logger.Fatalf("read meta: %v", err)
	} else if ok {
		tune.Seed = seed
	}

	w, err := world.New(world.FromTuning(tune), mats, reacts)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	recs, err := db.LoadChunks()
	if err != nil {
		logger.Fatalf("load chunks: %v", err)
	}
	for _, r := range recs {
		ch, err := world.DecodeChunk(r.Key.CX, r.Key.CY, r.Payload, mats)
		if err != nil {
			logger.Printf("skip chunk (%d,%d): %v", r.Key.CX, r.Key.CY, err)
			continue
		}
		w.InstallChunk(ch)
	}

	dt := 1.0 / float64(tune.TickRateHz)
	logger.Printf("start chunks=%d seed=%d digest=%s", w.ChunkCount(), tune.Seed, w.Digest())
	for i := 1; i <= *ticks; i++ {
		st := w.Tick(dt)
		if *every > 0 && i%*every == 0 {
			logger.Printf("tick=%d active=%d moves=%d digest=%s", st.Tick, st.ActiveChunks, st.Moves, w.Digest())
		}
	}
	logger.Printf("done digest=%s", w.Digest())
}
