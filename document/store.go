package document

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidName = errors.New("invalid document name")
)

// Info describes a stored document.
type Info struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
	Size      int64     `json:"size"`
}

// Store persists documents by name.
type Store interface {
	Save(ctx context.Context, name string, doc *Document) error
	Load(ctx context.Context, name string) (*Document, error)
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// CleanName validates a document name and strips a trailing ".json".
func CleanName(name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".json")
	if !namePattern.MatchString(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}
