package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/types"
)

const indexFileName = "index.json"

// indexRecord is the on-disk bookkeeping for one stored entry. The payload
// lives in its own file; the index makes expiry sweeps and Clear cheap.
type indexRecord struct {
	File       string    `json:"file"`
	CreatedAt  time.Time `json:"createdAt"`
	TTLSeconds float64   `json:"ttlSeconds"`
	Compressed bool      `json:"compressed"`
	SizeBytes  int64     `json:"sizeBytes"`
}

// FileStore implements PersistentStore on the local filesystem. Entries are
// JSON files named by key hash, gzipped when flagged, tracked by a JSON
// index so restarts recover the full key set.
type FileStore struct {
	dir    string
	config config.L3Config
	logger *slog.Logger

	mu    sync.Mutex
	index map[string]indexRecord

	cleanupStopCh chan struct{}
	cleanupWg     sync.WaitGroup
	closed        atomic.Bool
}

// NewFileStore opens (or creates) the store directory and loads the index.
func NewFileStore(cfg config.L3Config, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Directory == "" {
		return nil, fmt.Errorf("file store requires a directory")
	}

	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	fs := &FileStore{
		dir:           cfg.Directory,
		config:        cfg,
		logger:        logger.With("component", "file-store"),
		index:         make(map[string]indexRecord),
		cleanupStopCh: make(chan struct{}),
	}

	if err := fs.loadIndex(); err != nil {
		// A corrupt index is rebuilt empty; orphaned files are swept later.
		fs.logger.Warn("Failed to load store index, starting empty", "error", err)
		fs.index = make(map[string]indexRecord)
	}

	if cfg.CleanupInterval > 0 {
		fs.cleanupWg.Add(1)
		go fs.cleanupWorker()
	}

	return fs, nil
}

// GetFromStore reads and decodes an entry. Misses and expired entries
// return (nil, nil); expired files are removed on the way out.
func (fs *FileStore) GetFromStore(ctx context.Context, key string) (*types.Entry, error) {
	if fs.closed.Load() {
		return nil, types.ErrTierUnavailable
	}

	fs.mu.Lock()
	rec, ok := fs.index[key]
	fs.mu.Unlock()
	if !ok {
		return nil, nil
	}

	ttl := time.Duration(rec.TTLSeconds * float64(time.Second))
	if ttl > 0 && time.Since(rec.CreatedAt) > ttl {
		fs.remove(key, rec)
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(fs.dir, rec.File))
	if err != nil {
		if os.IsNotExist(err) {
			fs.remove(key, rec)
			return nil, nil
		}
		return nil, types.NewCacheError("GetFromStore", key, "file-store", err)
	}

	if rec.Compressed {
		data, err = gunzip(data)
		if err != nil {
			fs.logger.Warn("Discarding undecodable entry", "key", key, "error", err)
			fs.remove(key, rec)
			return nil, nil
		}
	}

	var entry types.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		fs.logger.Warn("Discarding undecodable entry", "key", key, "error", err)
		fs.remove(key, rec)
		return nil, nil
	}

	return &entry, nil
}

// SetToStore encodes and writes an entry, gzipping when the entry was
// flagged for compression. The index is persisted after each write.
func (fs *FileStore) SetToStore(ctx context.Context, entry *types.Entry) error {
	if fs.closed.Load() {
		return types.ErrTierUnavailable
	}

	ttl := entry.TTL
	if ttl <= 0 {
		ttl = fs.config.DefaultTTL
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return types.NewCacheError("SetToStore", entry.Key, "file-store", err)
	}

	compressed := entry.Compressed
	if compressed {
		data, err = gzipBytes(data)
		if err != nil {
			return types.NewCacheError("SetToStore", entry.Key, "file-store", err)
		}
	}

	file := hashKey(entry.Key) + ".json"
	if compressed {
		file += ".gz"
	}

	path := filepath.Join(fs.dir, file)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.NewCacheError("SetToStore", entry.Key, "file-store", err)
	}

	fs.mu.Lock()
	old, had := fs.index[entry.Key]
	fs.index[entry.Key] = indexRecord{
		File:       file,
		CreatedAt:  entry.CreatedAt,
		TTLSeconds: ttl.Seconds(),
		Compressed: compressed,
		SizeBytes:  int64(len(data)),
	}
	err = fs.saveIndexLocked()
	fs.mu.Unlock()

	if had && old.File != file {
		_ = os.Remove(filepath.Join(fs.dir, old.File))
	}
	if err != nil {
		return types.NewCacheError("SetToStore", entry.Key, "file-store", err)
	}
	return nil
}

// DeleteFromStore removes an entry, reporting whether it was present.
func (fs *FileStore) DeleteFromStore(ctx context.Context, key string) (bool, error) {
	if fs.closed.Load() {
		return false, types.ErrTierUnavailable
	}

	fs.mu.Lock()
	rec, ok := fs.index[key]
	fs.mu.Unlock()
	if !ok {
		return false, nil
	}

	fs.remove(key, rec)
	return true, nil
}

// ClearStore removes every entry and resets the index.
func (fs *FileStore) ClearStore(ctx context.Context) error {
	if fs.closed.Load() {
		return types.ErrTierUnavailable
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, rec := range fs.index {
		_ = os.Remove(filepath.Join(fs.dir, rec.File))
	}
	fs.index = make(map[string]indexRecord)
	if err := fs.saveIndexLocked(); err != nil {
		return types.NewCacheError("ClearStore", "", "file-store", err)
	}
	return nil
}

// RemoveExpired sweeps out entries past their TTL. Returns the count removed.
func (fs *FileStore) RemoveExpired() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	removed := 0
	for key, rec := range fs.index {
		ttl := time.Duration(rec.TTLSeconds * float64(time.Second))
		if ttl > 0 && time.Since(rec.CreatedAt) > ttl {
			_ = os.Remove(filepath.Join(fs.dir, rec.File))
			delete(fs.index, key)
			removed++
		}
	}

	if removed > 0 {
		_ = fs.saveIndexLocked()
		fs.logger.Debug("Removed expired entries", "count", removed)
	}
	return removed
}

// Len reports how many entries the index tracks.
func (fs *FileStore) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.index)
}

// Close stops the cleanup loop and flushes the index.
func (fs *FileStore) Close() error {
	if fs.closed.Swap(true) {
		return nil
	}

	close(fs.cleanupStopCh)
	fs.cleanupWg.Wait()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.saveIndexLocked()
}

func (fs *FileStore) cleanupWorker() {
	defer fs.cleanupWg.Done()

	ticker := time.NewTicker(fs.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-fs.cleanupStopCh:
			return
		case <-ticker.C:
			fs.RemoveExpired()
		}
	}
}

func (fs *FileStore) remove(key string, rec indexRecord) {
	fs.mu.Lock()
	delete(fs.index, key)
	_ = fs.saveIndexLocked()
	fs.mu.Unlock()
	_ = os.Remove(filepath.Join(fs.dir, rec.File))
}

func (fs *FileStore) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(fs.dir, indexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &fs.index)
}

// saveIndexLocked writes the index via rename so a crash mid-write leaves
// the previous index intact. Caller holds the lock.
func (fs *FileStore) saveIndexLocked() error {
	data, err := json.Marshal(fs.index)
	if err != nil {
		return err
	}

	tmp := filepath.Join(fs.dir, indexFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(fs.dir, indexFileName))
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

var _ types.PersistentStore = (*FileStore)(nil)
