package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"watercolumn/internal/blob/core"
)

func TestStoreMissingHeadGet(t *testing.T) {
	ctx := context.Background()
	store := New()
	if _, err := store.Head(ctx, "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head miss should wrap ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get miss should wrap ErrNotFound, got %v", err)
	}
}

func TestStorePutGetHeadDelete(t *testing.T) {
	ctx := context.Background()
	store := New()
	info, err := store.Put(ctx, "exports/general_Results.csv", bytes.NewReader([]byte("a,b\n1,2\n")), core.PutOptions{ContentType: "text/csv", Metadata: map[string]string{"frame": "results"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "exports/general_Results.csv" || info.Size != 8 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.LastModified.Location() != time.UTC || info.LastModified.IsZero() {
		t.Fatalf("last modified not a UTC stamp: %+v", info)
	}
	h, err := store.Head(ctx, "exports/general_Results.csv")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if h.ETag != info.ETag || h.Metadata["frame"] != "results" {
		t.Fatalf("head mismatch: %+v", h)
	}
	g, rc, err := store.Get(ctx, "exports/general_Results.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "a,b\n1,2\n" || g.ETag != info.ETag {
		t.Fatalf("unexpected content %q", b)
	}
	removed, err := store.Delete(ctx, "exports/general_Results.csv")
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	removed, err = store.Delete(ctx, "exports/general_Results.csv")
	if err != nil || removed {
		t.Fatalf("second delete should be a no-op: removed=%v err=%v", removed, err)
	}
}

func TestStoreCreateOnlyAndOverwrite(t *testing.T) {
	ctx := context.Background()
	store := New()
	first, err := store.Put(ctx, "dup.csv", bytes.NewReader([]byte("v1")), core.PutOptions{})
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "dup.csv", bytes.NewReader([]byte("v2")), core.PutOptions{}); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected create-only failure, got %v", err)
	}
	second, err := store.Put(ctx, "dup.csv", bytes.NewReader([]byte("v2")), core.PutOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("overwrite put: %v", err)
	}
	if second.ETag == first.ETag {
		t.Fatalf("overwrite should change the etag")
	}
	_, rc, err := store.Get(ctx, "dup.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "v2" {
		t.Fatalf("unexpected content after overwrite: %q", b)
	}
}

func TestStoreListPrefixAndOrder(t *testing.T) {
	ctx := context.Background()
	store := New()
	for _, key := range []string{"trend/b.csv", "trend/a.csv", "general/c.csv"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "trend/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "trend/a.csv" || list[1].Key != "trend/b.csv" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 || all[0].Key != "general/c.csv" {
		t.Fatalf("unexpected full list %+v", all)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("delete missing should be (false, nil): %v %v", ok, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStorePutReadErrorAndDriver(t *testing.T) {
	ctx := context.Background()
	store := New()
	if _, err := store.Put(ctx, "broken", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read failure")
	}
	if _, _, err := store.Get(ctx, "broken"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("failed put should not store anything, got %v", err)
	}
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %q", store.Driver())
	}
	if _, err := store.PresignURL(ctx, "broken", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("presign should be unsupported, got %v", err)
	}
}

func TestStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	store := New()
	md := map[string]string{"k": "v"}
	if _, err := store.Put(ctx, "iso", bytes.NewReader([]byte("data")), core.PutOptions{Metadata: md}); err != nil {
		t.Fatalf("put: %v", err)
	}
	md["k"] = "mutated"
	h, err := store.Head(ctx, "iso")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if h.Metadata["k"] != "v" {
		t.Fatalf("store shares caller metadata map: %+v", h.Metadata)
	}
	h.Metadata["k"] = "mutated-again"
	h2, err := store.Head(ctx, "iso")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if h2.Metadata["k"] != "v" {
		t.Fatalf("head returns shared metadata map: %+v", h2.Metadata)
	}
	_, rc, err := store.Get(ctx, "iso")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	b[0] = 'X'
	_, rc2, err := store.Get(ctx, "iso")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b2, _ := io.ReadAll(rc2)
	_ = rc2.Close()
	if string(b2) != "data" {
		t.Fatalf("get returns shared content buffer: %q", b2)
	}
}
