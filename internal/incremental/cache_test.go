package incremental

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
)

func record(src, slug, fp string) *asset.Record {
	return &asset.Record{ID: slug, Slug: slug, SourcePath: src, Fingerprint: fp, Category: "misc", Tags: []string{}}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "cache.json"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 || c.SchemaVersion != SchemaVersion {
		t.Fatalf("expected empty cache, got %+v", c)
	}
}

func TestCommitAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := NewBuildCache()
	c.BuildID = "b1"
	c.Revision = "abc"
	c.ConfigSnapshot = "snap"
	c.LastBuildTimestamp = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := record("ui/ok.png", "ui-ok", "fp1")
	rec.SetDimensions(10, 20)
	c.Put(rec, "meta1", "ui-ok")

	if err := c.Commit(path); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, ok := got.Get("ui/ok.png")
	if !ok {
		t.Fatal("entry missing after reload")
	}
	if e.Fingerprint != "fp1" || e.MetadataFingerprint != "meta1" || e.SlugBase != "ui-ok" || e.Record.Slug != "ui-ok" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if w, h, ok := e.Record.Dimensions(); !ok || w != 10 || h != 20 {
		t.Fatalf("dimensions lost: %d %d %v", w, h, ok)
	}
	if got.BuildID != "b1" || got.Revision != "abc" || got.ConfigSnapshot != "snap" {
		t.Fatalf("header lost: %+v", got)
	}
}

func TestLoad_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, nil)
	if err != nil {
		t.Fatalf("corrupt cache must not fail: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}

func TestLoad_ToleratesUnknownAndMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	doc := `{
  "futureField": {"x": 1},
  "entries": {
    "a.png": {"fingerprint": "f", "record": {"slug": "a", "extra": true}},
    "b.png": {"fingerprint": "f"},
    "c.png": {"record": {"slug": "c"}}
  }
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected only the complete entry, got %d", c.Len())
	}
	e, _ := c.Get("a.png")
	if e.Record.SourcePath != "a.png" {
		t.Fatalf("source path not restored from key: %q", e.Record.SourcePath)
	}
}

func TestLoad_NewerSchemaIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	doc := `{"schemaVersion": 99, "entries": {"a.png": {"fingerprint": "f", "record": {"slug": "a"}}}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 {
		t.Fatal("newer schema must be discarded")
	}
}

func TestAcquireLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	l, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if _, err := AcquireLock(path); err != ErrCacheLocked {
		t.Fatalf("expected ErrCacheLocked, got %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	l2, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	_ = l2.Release()
	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Fatalf("nil release: %v", err)
	}
}
