package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/types"
)

func testL3Config(dir string) config.L3Config {
	return config.L3Config{
		Enabled:    true,
		Directory:  dir,
		DefaultTTL: time.Hour,
	}
}

func newTestFileStore(t *testing.T, dir string) *FileStore {
	t.Helper()
	fs, err := NewFileStore(testL3Config(dir), nil)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	t.Cleanup(func() { _ = fs.Close() })
	return fs
}

func TestFileStoreRoundtrip(t *testing.T) {
	fs := newTestFileStore(t, t.TempDir())
	ctx := context.Background()

	entry := &types.Entry{
		Key:       "fundamentals:AAPL",
		Value:     []byte(`{"pe":31.2}`),
		CreatedAt: time.Now(),
		TTL:       time.Hour,
	}
	if err := fs.SetToStore(ctx, entry); err != nil {
		t.Fatalf("SetToStore failed: %v", err)
	}

	got, err := fs.GetFromStore(ctx, "fundamentals:AAPL")
	if err != nil {
		t.Fatalf("GetFromStore failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry")
	}
	if string(got.Value) != `{"pe":31.2}` {
		t.Errorf("Value = %s", got.Value)
	}

	missing, err := fs.GetFromStore(ctx, "absent")
	if err != nil || missing != nil {
		t.Errorf("miss = (%v, %v), want (nil, nil)", missing, err)
	}
}

func TestFileStoreCompression(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFileStore(t, dir)
	ctx := context.Background()

	payload := strings.Repeat("market data payload ", 500)
	entry := &types.Entry{
		Key:        "news:feed",
		Value:      []byte(`"` + payload + `"`),
		CreatedAt:  time.Now(),
		TTL:        time.Hour,
		Compressed: true,
	}
	if err := fs.SetToStore(ctx, entry); err != nil {
		t.Fatalf("SetToStore failed: %v", err)
	}

	// The payload file must be gzipped, visibly smaller than the input.
	files, err := filepath.Glob(filepath.Join(dir, "*.json.gz"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one .json.gz file, got %v (%v)", files, err)
	}
	info, err := os.Stat(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() >= int64(len(payload)) {
		t.Errorf("compressed file is %d bytes for a %d byte payload", info.Size(), len(payload))
	}

	got, err := fs.GetFromStore(ctx, "news:feed")
	if err != nil || got == nil {
		t.Fatalf("GetFromStore = (%v, %v)", got, err)
	}
	if string(got.Value) != `"`+payload+`"` {
		t.Error("roundtrip through compression corrupted the value")
	}
}

func TestFileStoreExpiry(t *testing.T) {
	fs := newTestFileStore(t, t.TempDir())
	ctx := context.Background()

	entry := &types.Entry{
		Key:       "quote:old",
		Value:     []byte(`1`),
		CreatedAt: time.Now().Add(-time.Hour),
		TTL:       time.Minute,
	}
	if err := fs.SetToStore(ctx, entry); err != nil {
		t.Fatal(err)
	}

	got, err := fs.GetFromStore(ctx, "quote:old")
	if err != nil {
		t.Fatalf("GetFromStore failed: %v", err)
	}
	if got != nil {
		t.Error("expected expired entry to read as a miss")
	}
	if fs.Len() != 0 {
		t.Errorf("expired entry still indexed, Len = %d", fs.Len())
	}
}

func TestFileStoreRemoveExpired(t *testing.T) {
	fs := newTestFileStore(t, t.TempDir())
	ctx := context.Background()

	old := &types.Entry{
		Key:       "old",
		Value:     []byte(`1`),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		TTL:       time.Minute,
	}
	fresh := &types.Entry{
		Key:       "fresh",
		Value:     []byte(`2`),
		CreatedAt: time.Now(),
		TTL:       time.Hour,
	}
	if err := fs.SetToStore(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := fs.SetToStore(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	if removed := fs.RemoveExpired(); removed != 1 {
		t.Errorf("RemoveExpired = %d, want 1", removed)
	}
	if fs.Len() != 1 {
		t.Errorf("Len = %d, want 1", fs.Len())
	}
}

func TestFileStoreIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fs, err := NewFileStore(testL3Config(dir), nil)
	if err != nil {
		t.Fatal(err)
	}

	entry := &types.Entry{
		Key:       "persistent",
		Value:     []byte(`"survives"`),
		CreatedAt: time.Now(),
		TTL:       time.Hour,
	}
	if err := fs.SetToStore(ctx, entry); err != nil {
		t.Fatal(err)
	}
	if err := fs.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := newTestFileStore(t, dir)
	got, err := reopened.GetFromStore(ctx, "persistent")
	if err != nil || got == nil {
		t.Fatalf("GetFromStore after reopen = (%v, %v)", got, err)
	}
	if string(got.Value) != `"survives"` {
		t.Errorf("Value = %s", got.Value)
	}
}

func TestFileStoreDeleteAndClear(t *testing.T) {
	fs := newTestFileStore(t, t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"a", "b"} {
		entry := &types.Entry{Key: key, Value: []byte(`1`), CreatedAt: time.Now(), TTL: time.Hour}
		if err := fs.SetToStore(ctx, entry); err != nil {
			t.Fatal(err)
		}
	}

	ok, err := fs.DeleteFromStore(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("DeleteFromStore = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = fs.DeleteFromStore(ctx, "a")
	if err != nil || ok {
		t.Errorf("second DeleteFromStore = (%v, %v), want (false, nil)", ok, err)
	}

	if err := fs.ClearStore(ctx); err != nil {
		t.Fatalf("ClearStore failed: %v", err)
	}
	if fs.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", fs.Len())
	}
}

func TestFileStoreCorruptIndexStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, indexFileName), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := newTestFileStore(t, dir)
	if fs.Len() != 0 {
		t.Errorf("Len = %d with corrupt index, want 0", fs.Len())
	}
}
