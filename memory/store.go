package memory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LdDl/scene-graph-go/scene"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	logFileName   = "memory.jsonl"
	indexFileName = "memory.index"
	metaFileName  = "meta.json"

	maxEntryBytes = 64 * 1024 * 1024
)

// ErrStoreNotFound is returned when opening a directory without store metadata
var ErrStoreNotFound = errors.New("memory store not found")

// Config holds Spatial Memory Store options
type Config struct {
	// Vector index implementation: "flat" or "dense". Default "flat"
	Index IndexKind `yaml:"index"`
}

// DefaultConfig returns default store options
func DefaultConfig() Config {
	return Config{
		Index: IndexFlat,
	}
}

type storeMeta struct {
	IDs   []string  `json:"id_map"`
	Total int       `json:"total"`
	Index IndexKind `json:"index"`
}

// Store is append-only per-run memory of frames. Single writer.
type Store struct {
	dir    string
	cfg    Config
	index  Index
	ids    []string
	logger *slog.Logger
}

// Create initializes store in dir. Any log left by a previous run in the same directory is truncated.
func Create(dir string, cfg Config) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "Can't create store directory '%s'", dir)
	}
	idx, err := NewIndex(cfg.Index, EmbedDim)
	if err != nil {
		return nil, err
	}
	logFile, err := os.Create(filepath.Join(dir, logFileName))
	if err != nil {
		return nil, errors.Wrap(err, "Can't create entry log")
	}
	if err := logFile.Close(); err != nil {
		return nil, errors.Wrap(err, "Can't close entry log")
	}
	return &Store{
		dir:    dir,
		cfg:    cfg,
		index:  idx,
		ids:    make([]string, 0),
		logger: slog.Default(),
	}, nil
}

// Open reopens store saved earlier. Only identity list and index are loaded, entries stay in the log.
func Open(dir string, cfg Config) (*Store, error) {
	payload, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrStoreNotFound, "directory '%s'", dir)
		}
		return nil, errors.Wrap(err, "Can't read store metadata")
	}
	meta := storeMeta{}
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, errors.Wrap(err, "Can't decode store metadata")
	}
	store := &Store{
		dir:    dir,
		cfg:    cfg,
		ids:    meta.IDs,
		logger: slog.Default(),
	}
	if store.ids == nil {
		store.ids = make([]string, 0)
	}
	idx, err := LoadIndex(filepath.Join(dir, indexFileName))
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			return nil, err
		}
		// no snapshot: similarity search is empty, structured queries still work
		idx, err = NewIndex(cfg.Index, EmbedDim)
		if err != nil {
			return nil, err
		}
	}
	store.index = idx
	if idx.Len() != len(store.ids) {
		store.logger.Warn("memory index and metadata disagree", slog.Int("index", idx.Len()), slog.Int("entries", len(store.ids)))
	}
	return store, nil
}

// SetLogger replaces store's logger
func (store *Store) SetLogger(logger *slog.Logger) {
	store.logger = logger
}

// Dir returns store directory
func (store *Store) Dir() string {
	return store.dir
}

// Len returns number of entries
func (store *Store) Len() int {
	return len(store.ids)
}

// Ingest appends one entry per frame. The batch is encoded in full before anything reaches the log,
// so a failed ingest leaves log and index aligned.
func (store *Store) Ingest(frames []scene.Frame, source string) ([]Entry, error) {
	if frames == nil {
		return nil, scene.ErrNoFrames
	}
	var batch bytes.Buffer
	encoder := json.NewEncoder(&batch)
	entries := make([]Entry, 0, len(frames))
	vectors := make([][]float64, 0, len(frames))
	for i := range frames {
		entry := newEntry(&frames[i], source)
		if err := encoder.Encode(entry); err != nil {
			return nil, errors.Wrapf(err, "Can't encode entry for frame %d", frames[i].FrameIndex)
		}
		entries = append(entries, entry)
		vectors = append(vectors, Embed(frames[i].Objects))
	}

	logFile, err := os.OpenFile(filepath.Join(store.dir, logFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open entry log")
	}
	defer logFile.Close()
	info, err := logFile.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "Can't stat entry log")
	}
	offset := info.Size()
	if _, err := logFile.Write(batch.Bytes()); err != nil {
		return nil, store.rollback(logFile, offset, errors.Wrap(err, "Can't write entry log"))
	}
	if err := store.index.Add(vectors...); err != nil {
		return nil, store.rollback(logFile, offset, errors.Wrap(err, "Can't index entries"))
	}
	for _, entry := range entries {
		store.ids = append(store.ids, entry.ID)
	}
	store.logger.Info("memory ingested", slog.Int("entries", len(entries)), slog.String("source", source))
	return entries, nil
}

// rollback cuts log back to offset after a failed batch
func (store *Store) rollback(logFile *os.File, offset int64, cause error) error {
	if err := logFile.Truncate(offset); err != nil {
		store.logger.Error("can't roll back entry log", slog.Int64("offset", offset), slog.Any("error", err))
	}
	return cause
}

func newEntry(frame *scene.Frame, source string) Entry {
	entry := Entry{
		ID:           uuid.New().String(),
		Source:       source,
		FrameIndex:   frame.OriginalFrame,
		Timestamp:    frame.Timestamp,
		TimestampStr: frame.TimestampStr,
		ReconFrame:   frame.ReconFrame,
		Detections:   frame.Objects,
		Summary: SceneSummary{
			NumObjects: frame.NumObjects,
			Labels:     make(map[string]int),
			Relations:  frame.Relations,
			HandState:  frame.HandState,
		},
		CreatedAt: time.Now().UTC(),
	}
	if entry.Detections == nil {
		entry.Detections = []scene.SpatialObject{}
	}
	if pos, ok := frame.CameraPosition(); ok {
		entry.Camera.WorldPosition = &pos
	}
	for _, obj := range frame.Objects {
		entry.Summary.Labels[obj.Label]++
	}
	return entry
}

// Save writes index snapshot and metadata
func (store *Store) Save() error {
	if err := SaveIndex(filepath.Join(store.dir, indexFileName), store.index); err != nil {
		return err
	}
	payload, err := json.Marshal(storeMeta{
		IDs:   store.ids,
		Total: len(store.ids),
		Index: store.index.Kind(),
	})
	if err != nil {
		return errors.Wrap(err, "Can't encode store metadata")
	}
	if err := writeFileAtomic(filepath.Join(store.dir, metaFileName), payload); err != nil {
		return err
	}
	store.logger.Debug("memory saved", slog.Int("entries", len(store.ids)), slog.String("dir", store.dir))
	return nil
}

// Stats returns entry count and log size
func (store *Store) Stats() (Stats, error) {
	stats := Stats{
		Entries: len(store.ids),
	}
	info, err := os.Stat(filepath.Join(store.dir, logFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, errors.Wrap(err, "Can't stat entry log")
	}
	stats.SizeKB = math.Round(float64(info.Size())/1024.0*10) / 10
	return stats, nil
}

// scan calls fn for every entry in log order until fn returns false
func (store *Store) scan(fn func(entry *Entry) bool) error {
	logFile, err := os.Open(filepath.Join(store.dir, logFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "Can't open entry log")
	}
	defer logFile.Close()

	scanner := bufio.NewScanner(logFile)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEntryBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		entry := Entry{}
		if err := json.Unmarshal(raw, &entry); err != nil {
			store.logger.Debug("memory: skipping corrupt entry", slog.Int("line", line), slog.Any("err", err))
			continue
		}
		if !fn(&entry) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "Can't scan entry log")
	}
	return nil
}

// Entries returns all entries in log order
func (store *Store) Entries() ([]Entry, error) {
	entries := make([]Entry, 0, len(store.ids))
	err := store.scan(func(entry *Entry) bool {
		entries = append(entries, *entry)
		return true
	})
	return entries, err
}
