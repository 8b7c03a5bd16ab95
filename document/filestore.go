package document

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/slighter12/twinscene-go/logger"
)

const fileExt = ".json"

// removed marks a document deleted through the store.
var removed [sha256.Size]byte

// FileStore keeps one JSON file per document in a directory.
type FileStore struct {
	dir string

	mu      sync.Mutex
	written map[string][sha256.Size]byte
}

// NewFileStore returns a store rooted at dir, creating it when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("document directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}
	return &FileStore{dir: filepath.Clean(dir), written: make(map[string][sha256.Size]byte)}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) (string, string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", "", err
	}
	return name, filepath.Join(s.dir, name+fileExt), nil
}

func (s *FileStore) Save(ctx context.Context, name string, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, path, err := s.path(name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}
	s.mu.Lock()
	s.written[name] = sha256.Sum256(data)
	s.mu.Unlock()
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write document %s: %w", name, err)
	}
	logger.Debug("document saved", "name", name, "path", path, "bytes", len(data))
	return nil
}

func (s *FileStore) Load(ctx context.Context, name string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	doc := New()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", name, err)
	}
	return doc, nil
}

func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := []Info{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Name:      strings.TrimSuffix(e.Name(), fileExt),
			UpdatedAt: fi.ModTime().UTC(),
			Size:      fi.Size(),
		})
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("delete document %s: %w", name, err)
	}
	s.mu.Lock()
	s.written[name] = removed
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Close() error { return nil }

// Watch calls onChange with the name of every document changed or removed
// by someone else until ctx is done. Writes made through s are ignored.
func (s *FileStore) Watch(ctx context.Context, onChange func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if name, changed := s.external(event); changed {
					onChange(name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("document watcher error", "dir", s.dir, "error", err)
			}
		}
	}()
	return nil
}

// external reports whether event touches a document in a way s did not
// cause itself.
func (s *FileStore) external(event fsnotify.Event) (string, bool) {
	base := filepath.Base(event.Name)
	if filepath.Ext(base) != fileExt {
		return "", false
	}
	name := strings.TrimSuffix(base, fileExt)
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if _, err := os.Stat(event.Name); err == nil {
			return "", false
		}
		sum, ok := s.written[name]
		delete(s.written, name)
		return name, !ok || sum != removed
	}
	data, err := os.ReadFile(event.Name)
	if err != nil {
		return "", false
	}
	if sum, ok := s.written[name]; ok && sum == sha256.Sum256(data) {
		return "", false
	}
	s.written[name] = sha256.Sum256(data)
	return name, true
}
