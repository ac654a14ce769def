package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/chacha20poly1305"
)

var _ CredentialStore = &FileStore{}

// ErrInvalidKeyLength is returned when the encryption key is not the
// required size.
var ErrInvalidKeyLength = errors.New("store: encryption key must be 32 bytes", errors.CategoryBadInput)

// FileStore persists the credential record to a single file, sealed with
// ChaCha20-Poly1305. The nonce is prepended to the ciphertext.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  []byte
}

// NewFileStore creates a store writing to path. The key must be exactly
// chacha20poly1305.KeySize (32) bytes.
func NewFileStore(path string, key []byte) (*FileStore, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKeyLength
	}

	return &FileStore{
		path: path,
		key:  append([]byte(nil), key...),
	}, nil
}

func (s *FileStore) Read(_ context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "store: failed to read credential file")
	}

	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "store: failed to initialize cipher")
	}

	if len(raw) < aead.NonceSize() {
		return nil, errors.New("store: credential file is truncated", errors.CategoryOperation)
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "store: failed to decrypt credential file")
	}

	rec := &Record{}
	if err := json.Unmarshal(plaintext, rec); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "store: failed to decode credential record")
	}

	return rec, nil
}

func (s *FileStore) Write(_ context.Context, rec *Record) error {
	if rec == nil {
		return s.Erase(context.Background())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "store: failed to encode credential record")
	}

	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "store: failed to initialize cipher")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "store: failed to generate nonce")
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)

	// Write through a temp file so a crash mid-write cannot leave a
	// half-sealed record behind.
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "store: failed to create credential directory")
	}
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "store: failed to write credential file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "store: failed to replace credential file")
	}

	return nil
}

func (s *FileStore) Erase(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.CategoryOperation, "store: failed to remove credential file")
	}
	return nil
}
