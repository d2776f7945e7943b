// Package log writes the engine's append-only audit trails: one compressed
// JSONL file per hour per stream. Spawn and respawn outcomes land here so a
// world's population history can be replayed without querying the store.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// SpawnRecord is one audited spawn or despawn.
type SpawnRecord struct {
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"` // "monster", "item", "world", "respawn"
	ID       string    `json:"id,omitempty"`
	Template string    `json:"template,omitempty"`
	Loc      []string  `json:"loc,omitempty"`
	LocT     string    `json:"locT,omitempty"`
	LocI     string    `json:"locI,omitempty"`
	Replaced bool      `json:"replaced,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// SpawnLogger writes spawn audit JSONL entries (compressed).
type SpawnLogger struct{ w *JSONLZstdWriter }

func NewSpawnLogger(worldDir string) *SpawnLogger {
	return &SpawnLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "spawns"), "spawns")}
}

func (l *SpawnLogger) WriteSpawn(v SpawnRecord) error { return l.w.Write(v) }
func (l *SpawnLogger) Close() error                   { return l.w.Close() }
