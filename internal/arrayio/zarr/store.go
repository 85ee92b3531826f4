package zarr

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Store types.
const (
	MemoryStoreType = "MemoryStore"
	LocalStoreType  = "LocalStore"

	dirPermissionBits  = 0o755
	filePermissionBits = 0o644
)

// ErrNotFound is returned by Store.Get for missing keys.
var ErrNotFound = errors.New("not found")

// Store is a key/value store holding zarr metadata and chunks.
type Store interface {
	Get(key string) (io.ReadCloser, error)
	Put(key string, val io.Reader) error
	Type() string
}

// MemoryStore keeps everything in a map.
type MemoryStore struct {
	lk   sync.Mutex
	data map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: map[string][]byte{},
	}
}

// Type returns MemoryStoreType.
func (s *MemoryStore) Type() string { return MemoryStoreType }

// Get returns the value stored under key.
func (s *MemoryStore) Get(key string) (io.ReadCloser, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(d)), nil
}

// Put stores the content of val under key.
func (s *MemoryStore) Put(key string, val io.Reader) error {
	d, err := io.ReadAll(val)
	if err != nil {
		return err
	}

	s.lk.Lock()
	defer s.lk.Unlock()
	s.data[key] = d

	return nil
}

// Keys returns the stored keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.lk.Lock()
	defer s.lk.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LocalStore maps keys to files below a base directory.
type LocalStore struct {
	base string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates the base directory if needed.
func NewLocalStore(base string) (*LocalStore, error) {
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(base, dirPermissionBits); err != nil {
		return nil, errors.Wrap(err, "create store directory")
	}

	return &LocalStore{
		base: base,
	}, nil
}

// Type returns LocalStoreType.
func (s *LocalStore) Type() string { return LocalStoreType }

// Get opens the file for key.
func (s *LocalStore) Get(key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.base, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(ErrNotFound, key)
	}
	return f, err
}

// Put writes val to the file for key, creating parent directories.
func (s *LocalStore) Put(key string, val io.Reader) error {
	path := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), dirPermissionBits); err != nil {
		return err
	}
	//nolint:gosec // G304: keys are chunk and metadata names below the store directory.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissionBits)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, val); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write %s", key)
	}
	return f.Close()
}
