// Package uploads stores product images on local disk under random
// names, so uploaded filenames can never collide or escape the directory.
package uploads

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
)

const MaxFileSize = 5 << 20 // 5MB

var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type Storage struct {
	Dir      string
	MaxBytes int64
}

func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Storage{Dir: dir, MaxBytes: MaxFileSize}, nil
}

// Save validates the extension and size, then writes the content under a
// fresh UUID-based name. Returns the stored filename.
func (s *Storage) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExts[ext] {
		return "", apperr.E(apperr.KindValidation,
			"file type %q not allowed; use: jpg, jpeg, png, gif, webp", ext)
	}

	content, err := io.ReadAll(io.LimitReader(r, s.MaxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(content)) > s.MaxBytes {
		return "", apperr.E(apperr.KindValidation, "file too large; maximum is %dMB", s.MaxBytes>>20)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.Dir, name), content, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// Path resolves a stored filename for serving. Traversal components are
// stripped before lookup.
func (s *Storage) Path(filename string) (string, error) {
	p := filepath.Join(s.Dir, filepath.Base(filename))
	if _, err := os.Stat(p); err != nil {
		return "", apperr.E(apperr.KindNotFound, "file not found")
	}
	return p, nil
}
