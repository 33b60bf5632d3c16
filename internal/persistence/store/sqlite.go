package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"sunaba.world/internal/sim/world"
)

// ChunkRecord is one persisted chunk row. Payload is the raw pixel
// encoding, already decompressed.
type ChunkRecord struct {
	Key     world.ChunkKey
	Tick    uint64
	Payload []byte
}

// Store keeps chunk payloads and world metadata in a single sqlite file.
// Payloads are zstd-compressed at rest.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (cx, cy)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_tick ON chunks(tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// SaveChunks upserts the given chunk payloads in one transaction.
func (s *Store) SaveChunks(tick uint64, recs []ChunkRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO chunks(cx,cy,tick,payload) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		blob := s.enc.EncodeAll(r.Payload, nil)
		if _, err := stmt.Exec(r.Key.CX, r.Key.CY, int64(tick), blob); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadChunks returns every persisted chunk, payloads decompressed.
func (s *Store) LoadChunks() ([]ChunkRecord, error) {
	rows, err := s.db.Query(`SELECT cx, cy, tick, payload FROM chunks ORDER BY cy, cx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChunkRecord
	for rows.Next() {
		var (
			cx, cy int
			tick   int64
			blob   []byte
		)
		if err := rows.Scan(&cx, &cy, &tick, &blob); err != nil {
			return nil, err
		}
		payload, err := s.dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, fmt.Errorf("chunk (%d,%d): %w", cx, cy, err)
		}
		out = append(out, ChunkRecord{
			Key:     world.ChunkKey{CX: cx, CY: cy},
			Tick:    uint64(tick),
			Payload: payload,
		})
	}
	return out, rows.Err()
}

func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, key, value)
	return err
}

func (s *Store) Meta(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) SetMetaInt(key string, v int64) error {
	return s.SetMeta(key, strconv.FormatInt(v, 10))
}

func (s *Store) MetaInt(key string) (int64, bool, error) {
	raw, ok, err := s.Meta(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
