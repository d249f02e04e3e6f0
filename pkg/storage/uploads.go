package storage

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Well-known subdirectories under the uploads root.
const (
	SubdirPhotos       = ""
	SubdirFingerprints = "fingerprint"
	SubdirAvatars      = "avatars"
)

// ErrOutsideRoot is returned when a requested path escapes the uploads root.
var ErrOutsideRoot = fmt.Errorf("path resolves outside uploads root")

// Upload carries metadata and the content reader for an incoming file.
type Upload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// UploadStore persists attachment files on disk under a base directory.
// Filenames are keyed by timestamp plus a random suffix so collisions are
// not expected, though not guaranteed by locking.
type UploadStore struct {
	baseDir      string
	maxFileSize  int64
	allowedMIMEs map[string]struct{}
}

// NewUploadStore ensures the base directory tree exists and returns a handle.
func NewUploadStore(baseDir string, maxFileSize int64, allowedMIMEs []string) (*UploadStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads directory: %w", err)
	}
	for _, sub := range []string{SubdirPhotos, SubdirFingerprints, SubdirAvatars} {
		if err := os.MkdirAll(filepath.Join(abs, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create uploads directory: %w", err)
		}
	}
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024
	}
	if len(allowedMIMEs) == 0 {
		allowedMIMEs = []string{"image/jpeg", "image/png", "image/webp"}
	}
	mimeSet := make(map[string]struct{}, len(allowedMIMEs))
	for _, mt := range allowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &UploadStore{baseDir: abs, maxFileSize: maxFileSize, allowedMIMEs: mimeSet}, nil
}

// Save validates and writes an upload into the given subdirectory, returning
// the stored file's path relative to the uploads root.
func (s *UploadStore) Save(subdir string, upload Upload) (string, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return "", fmt.Errorf("empty upload")
	}
	if upload.Size > s.maxFileSize {
		return "", fmt.Errorf("file exceeds %d bytes limit", s.maxFileSize)
	}
	if err := s.checkMime(upload.Content); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString()[:8], sanitizeExt(upload.Filename))
	rel := filepath.Join(subdir, name)
	path, err := s.resolve(rel)
	if err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, upload.Content); err != nil {
		return "", fmt.Errorf("write upload stream: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// Open returns a read-only handle for a stored file, rejecting any path that
// escapes the uploads root.
func (s *UploadStore) Open(rel string) (*os.File, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *UploadStore) Delete(rel string) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Path resolves a stored file's absolute path, applying the same root check
// as Open.
func (s *UploadStore) Path(rel string) (string, error) {
	return s.resolve(rel)
}

func (s *UploadStore) checkMime(r io.ReadSeeker) error {
	head := make([]byte, 512)
	n, err := r.Read(head)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read upload head: %w", err)
	}
	mime := http.DetectContentType(head[:n])
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = mime[:idx]
	}
	if _, ok := s.allowedMIMEs[strings.ToLower(strings.TrimSpace(mime))]; !ok {
		return fmt.Errorf("mime type %s not allowed", mime)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload stream: %w", err)
	}
	return nil
}

func (s *UploadStore) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) || filepath.IsAbs(filepath.FromSlash(rel)) {
		return "", ErrOutsideRoot
	}
	joined := filepath.Join(s.baseDir, filepath.FromSlash(rel))
	cleaned := filepath.Clean(joined)
	if cleaned != s.baseDir && !strings.HasPrefix(cleaned, s.baseDir+string(os.PathSeparator)) {
		return "", ErrOutsideRoot
	}
	return cleaned, nil
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	default:
		return ".bin"
	}
}
