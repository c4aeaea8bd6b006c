package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// MaxFileSize is the upload cap, 5 MiB.
	MaxFileSize = 5 << 20

	refPrefix = "/uploads/"
)

var (
	ErrFileTooLarge   = errors.New("file too large")
	ErrNotAnImage     = errors.New("not an image")
	ErrFileNotFound   = errors.New("file not found")
	ErrInvalidRefName = errors.New("invalid file name")
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

// DiskStore keeps uploaded images in a flat directory under rootPath,
// addressed by generated names. Callers get back a /uploads/<name> reference
// ready to embed in post content.
type DiskStore struct {
	rootPath string
}

func NewDiskStore(rootPath string) (*DiskStore, error) {
	if rootPath == "" {
		return nil, errors.New("root path cannot be empty")
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads root: %w", err)
	}
	return &DiskStore{
		rootPath: rootPath,
	}, nil
}

// Save validates size and type before anything touches the disk, then writes
// the file under a generated collision-free name and returns its reference.
func (s *DiskStore) Save(originalName string, size int64, contentType string, content io.Reader) (string, error) {
	if size > MaxFileSize {
		return "", ErrFileTooLarge
	}

	ext := strings.ToLower(path.Ext(originalName))
	if !allowedExtensions[ext] || !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotAnImage
	}

	fileName := fmt.Sprintf(
		"%d-%s%s",
		time.Now().UnixMilli(),
		strings.ReplaceAll(uuid.NewString(), "-", ""),
		ext,
	)
	filePath := filepath.Join(s.rootPath, fileName)

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("close uploaded file %s: %s", fileName, err)
		}
	}()

	written, err := io.Copy(file, io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		_ = os.Remove(filePath)
		return "", fmt.Errorf("write file: %w", err)
	}
	if written > MaxFileSize {
		// the declared size lied
		_ = os.Remove(filePath)
		return "", ErrFileTooLarge
	}

	log.Tracef("uploaded image saved: %s [%d bytes]", fileName, written)

	return refPrefix + fileName, nil
}

// Open returns the file for serving. The name is reduced to its base before
// touching the filesystem, path traversal attempts just miss.
func (s *DiskStore) Open(name string) (*os.File, error) {
	cleanName, err := s.sanitize(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.rootPath, cleanName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return file, nil
}

// Delete removes the referenced file. A missing file only gets a warning,
// deleting twice or deleting a stale reference is not an error.
func (s *DiskStore) Delete(ref string) error {
	cleanName, err := s.sanitize(strings.TrimPrefix(ref, refPrefix))
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.rootPath, cleanName)); err != nil {
		if os.IsNotExist(err) {
			log.Warnf("delete upload %s: already gone", cleanName)
			return nil
		}
		return err
	}
	return nil
}

func (s *DiskStore) sanitize(name string) (string, error) {
	cleanName := filepath.Base(filepath.Clean(name))
	if cleanName == "" || cleanName == "." || cleanName == ".." || strings.ContainsAny(cleanName, "/\\") {
		return "", ErrInvalidRefName
	}
	return cleanName, nil
}
