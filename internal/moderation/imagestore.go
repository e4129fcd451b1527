package moderation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidImageReference is returned for references outside the configured upload area.
var ErrInvalidImageReference = errors.New("invalid image reference")

const maxImageBytes = 20 << 20

// ImageStore loads listing images by reference.
type ImageStore interface {
	Open(ctx context.Context, ref string) ([]byte, error)
}

// LocalImageStore serves references like "/uploads/listings/1.jpg" from a directory.
type LocalImageStore struct {
	root   string
	prefix string
}

// NewLocalImageStore returns a store rooted at root accepting references under prefix.
func NewLocalImageStore(root, prefix string) *LocalImageStore {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &LocalImageStore{root: filepath.Clean(root), prefix: prefix}
}

// Resolve maps a reference to a file path inside the root.
func (s *LocalImageStore) Resolve(ref string) (string, error) {
	if !strings.HasPrefix(ref, s.prefix) {
		return "", fmt.Errorf("%w: %q does not start with %q", ErrInvalidImageReference, ref, s.prefix)
	}
	rel, err := url.PathUnescape(strings.TrimPrefix(ref, s.prefix))
	if err != nil || rel == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageReference, ref)
	}
	if strings.ContainsAny(rel, "\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageReference, ref)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the upload root", ErrInvalidImageReference, ref)
		}
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	inside, err := filepath.Rel(s.root, full)
	if err != nil || inside == "." || strings.HasPrefix(inside, "..") {
		return "", fmt.Errorf("%w: %q escapes the upload root", ErrInvalidImageReference, ref)
	}
	return full, nil
}

// Open reads the referenced file. Symlinks pointing outside the root are rejected.
func (s *LocalImageStore) Open(_ context.Context, ref string) ([]byte, error) {
	path, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}

	realRoot, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("resolve image: %w", err)
	}
	if inside, err := filepath.Rel(realRoot, realPath); err != nil || strings.HasPrefix(inside, "..") {
		return nil, fmt.Errorf("%w: %q links outside the upload root", ErrInvalidImageReference, ref)
	}

	info, err := os.Stat(realPath)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("image %q is a directory", ref)
	}
	if info.Size() > maxImageBytes {
		return nil, fmt.Errorf("image %q exceeds %d bytes", ref, maxImageBytes)
	}
	return os.ReadFile(realPath)
}
