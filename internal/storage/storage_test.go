package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	s := New(t.TempDir(), 4<<20, 10<<20)

	tests := []struct {
		name    string
		kind    string
		file    string
		size    int64
		wantExt string
		wantErr error
	}{
		{"photo ok", KindPhotos, "selfie.JPG", 1024, "jpg", nil},
		{"audio ok", KindAudio, "clip.m4a", 9 << 20, "m4a", nil},
		{"unknown kind", "video", "a.mp4", 10, "", ErrInvalidKind},
		{"photo extension on audio", KindAudio, "clip.png", 10, "", ErrExtensionNotAllowed},
		{"no extension", KindPhotos, "selfie", 10, "", ErrExtensionNotAllowed},
		{"photo too large", KindPhotos, "big.png", 4<<20 + 1, "", ErrTooLarge},
		{"audio under its own larger ceiling", KindAudio, "long.webm", 6 << 20, "webm", nil},
		{"audio too large", KindAudio, "long.webm", 10<<20 + 1, "", ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := s.Validate(tt.kind, tt.file, tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if ext != tt.wantExt {
				t.Errorf("ext = %q, want %q", ext, tt.wantExt)
			}
		})
	}
}

func TestSaveAndResolve(t *testing.T) {
	root := t.TempDir()
	s := New(root, 16, 16)

	key, err := s.Save(KindPhotos, "png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(key, "photos/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("key = %q", key)
	}

	path, err := s.Resolve(strings.Split(key, "/"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("read back %q, %v", data, err)
	}
}

func TestSaveRejectsOversizedStream(t *testing.T) {
	root := t.TempDir()
	s := New(root, 4, 4)

	_, err := s.Save(KindPhotos, "png", strings.NewReader("too many bytes"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, KindPhotos))
	if len(entries) != 0 {
		t.Errorf("partial file left behind: %d entries", len(entries))
	}
}

func TestResolveGuards(t *testing.T) {
	s := New(t.TempDir(), 1, 1)

	if _, err := s.Resolve([]string{"photos", "..", "secret"}); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("dot-dot segment: err = %v", err)
	}
	if _, err := s.Resolve([]string{"photos", "a..b.png"}); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("segment containing dot-dot: err = %v", err)
	}
	if _, err := s.Resolve([]string{"photos", ""}); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("empty segment: err = %v", err)
	}
	if _, err := s.Resolve([]string{"photos", "missing.png"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file: err = %v", err)
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"a.webm": "audio/webm",
		"a.MP3":  "audio/mpeg",
		"a.jpeg": "image/jpeg",
		"a.bin":  "application/octet-stream",
		"noext":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
