package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lumofit/companion/pkg/utils"
)

// FileStore persists all slots as one JSON object on disk.
// With a passphrase the file is salt || AES-GCM(JSON), keyed by argon2id.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  []byte
	salt []byte
	data map[string]string
}

// OpenFileStore loads path, creating nothing until the first write
func OpenFileStore(path, passphrase string) (*FileStore, error) {
	fs := &FileStore{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		raw = nil
	case err != nil:
		return nil, fmt.Errorf("read store: %w", err)
	}

	if passphrase != "" {
		if len(raw) > 0 {
			if len(raw) < utils.SaltLength {
				return nil, errors.New("store file is truncated")
			}
			fs.salt = append([]byte(nil), raw[:utils.SaltLength]...)
			raw = raw[utils.SaltLength:]
		} else {
			if fs.salt, err = utils.NewSalt(); err != nil {
				return nil, err
			}
		}
		fs.key = utils.DeriveKey(passphrase, fs.salt)
		if len(raw) > 0 {
			if raw, err = utils.Decrypt(fs.key, raw); err != nil {
				return nil, fmt.Errorf("decrypt store: %w", err)
			}
		}
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fs.data); err != nil {
			return nil, fmt.Errorf("decode store: %w", err)
		}
	}
	return fs, nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.data[key]
	f.data[key] = value
	if err := f.flush(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *FileStore) Remove(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return f.flush()
}

func (f *FileStore) Close() error { return nil }

// flush writes a temp file and renames it over the store. Caller holds mu.
func (f *FileStore) flush() error {
	out, err := json.Marshal(f.data)
	if err != nil {
		return err
	}
	if f.key != nil {
		sealed, err := utils.Encrypt(f.key, out)
		if err != nil {
			return fmt.Errorf("encrypt store: %w", err)
		}
		out = append(append([]byte(nil), f.salt...), sealed...)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".companion-store-*")
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}
