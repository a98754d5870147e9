// Package storage keeps uploaded photos and audio on local disk under a data
// directory. Keys are relative paths such as "photos/<id>.jpg".
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	KindPhotos = "photos"
	KindAudio  = "audio"
)

var (
	ErrInvalidKind         = errors.New("missing file or invalid type (photos|audio)")
	ErrExtensionNotAllowed = errors.New("file type not allowed")
	ErrTooLarge            = errors.New("file too large")
	ErrInvalidPath         = errors.New("invalid path")
	ErrNotFound            = errors.New("file not found")
)

var allowedExtensions = map[string][]string{
	KindPhotos: {"jpg", "jpeg", "png", "webp"},
	KindAudio:  {"webm", "mp3", "ogg", "m4a"},
}

var contentTypes = map[string]string{
	"webm": "audio/webm",
	"mp3":  "audio/mpeg",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

type Store struct {
	root     string
	maxBytes map[string]int64
}

func New(root string, maxPhotoBytes, maxAudioBytes int64) *Store {
	return &Store{
		root: root,
		maxBytes: map[string]int64{
			KindPhotos: maxPhotoBytes,
			KindAudio:  maxAudioBytes,
		},
	}
}

// MaxBytes returns the ceiling for kind, or 0 when kind is unknown.
func (s *Store) MaxBytes(kind string) int64 {
	return s.maxBytes[kind]
}

// Extension returns the lower-cased extension of filename without the dot.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// Validate checks kind, size and extension. The extension is taken from the
// file name only; a client-supplied content type is ignored.
func (s *Store) Validate(kind, filename string, size int64) (string, error) {
	limit, ok := s.maxBytes[kind]
	if !ok {
		return "", ErrInvalidKind
	}
	if size > limit {
		return "", fmt.Errorf("%w: maximum size is %dMB", ErrTooLarge, limit/1024/1024)
	}
	ext := Extension(filename)
	for _, allowed := range allowedExtensions[kind] {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", ErrExtensionNotAllowed
}

// Save writes r under kind with a fresh random name and returns its key.
// At most MaxBytes(kind) bytes are accepted.
func (s *Store) Save(kind, ext string, r io.Reader) (string, error) {
	limit, ok := s.maxBytes[kind]
	if !ok {
		return "", ErrInvalidKind
	}
	dir := filepath.Join(s.root, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s dir: %w", kind, err)
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate file name: %w", err)
	}
	name := id + "." + ext

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	n, copyErr := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	if copyErr == nil && n > limit {
		copyErr = ErrTooLarge
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(filepath.Join(dir, name))
		return "", copyErr
	}
	return kind + "/" + name, nil
}

// Resolve maps request path segments to a file on disk. Every segment must be
// non-empty and must not contain "..".
func (s *Store) Resolve(segments []string) (string, error) {
	if len(segments) == 0 {
		return "", ErrNotFound
	}
	for _, seg := range segments {
		if seg == "" || strings.Contains(seg, "..") {
			return "", ErrInvalidPath
		}
	}
	path := filepath.Join(append([]string{s.root}, segments...)...)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}

// ContentType maps a file name to its served content type.
func ContentType(filename string) string {
	if ct, ok := contentTypes[Extension(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}
