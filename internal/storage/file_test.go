package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := OpenFileStore(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := fs.Set(ctx, TokenKey, "tok-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := SetJSON(ctx, fs, UserDataKey, map[string]string{"nickname": "sam"}); err != nil {
		t.Fatalf("set json: %v", err)
	}

	reopened, err := OpenFileStore(path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	tok, ok, err := reopened.Get(ctx, TokenKey)
	if err != nil || !ok || tok != "tok-1" {
		t.Fatalf("expected tok-1, got %q ok=%v err=%v", tok, ok, err)
	}
	var user map[string]string
	found, err := GetJSON(ctx, reopened, UserDataKey, &user)
	if err != nil || !found || user["nickname"] != "sam" {
		t.Fatalf("unexpected user %v found=%v err=%v", user, found, err)
	}

	if err := reopened.Remove(ctx, SessionKeys...); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := reopened.Get(ctx, TokenKey); ok {
		t.Fatalf("expected token removed")
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	fs, err := OpenFileStore(filepath.Join(t.TempDir(), "absent.json"), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok, err := fs.Get(context.Background(), TokenKey); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestFileStore_EncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.bin")

	fs, err := OpenFileStore(path, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := fs.Set(ctx, TokenKey, "very-secret-token"); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bytes.Contains(raw, []byte("very-secret-token")) {
		t.Fatalf("token stored in plaintext")
	}

	reopened, err := OpenFileStore(path, "correct horse")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if tok, ok, _ := reopened.Get(ctx, TokenKey); !ok || tok != "very-secret-token" {
		t.Fatalf("expected token after reopen, got %q", tok)
	}

	if _, err := OpenFileStore(path, "wrong"); err == nil {
		t.Fatalf("expected wrong passphrase to fail")
	}
}

func TestMemoryStore_GetJSONMiss(t *testing.T) {
	var dest []string
	found, err := GetJSON(context.Background(), NewMemoryStore(), PatientsKey, &dest)
	if found || err != nil {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}
}

func TestGetJSON_CorruptValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	_ = m.Set(ctx, PatientsKey, "{not json")
	var dest []string
	if _, err := GetJSON(ctx, m, PatientsKey, &dest); err == nil {
		t.Fatalf("expected decode error")
	}
}
