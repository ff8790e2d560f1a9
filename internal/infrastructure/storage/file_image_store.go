package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

const jpegQuality = 90

// FileImageStore хранит оверлеи файлами в одном каталоге
type FileImageStore struct {
	dir string
	now func() time.Time
}

// NewFileImageStore создаёт каталог, если его нет
func NewFileImageStore(dir string) (*FileImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileImageStore{dir: dir, now: time.Now}, nil
}

// Dir каталог хранилища
func (s *FileImageStore) Dir() string {
	return s.dir
}

// Save кодирует JPEG во временный файл и переименовывает его в уникальное имя
func (s *FileImageStore) Save(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", entity.ErrStorageFailure, err)
	}

	name := s.uniqueName()
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %w", entity.ErrStorageFailure, err)
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: encode overlay: %w", entity.ErrStorageFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: sync overlay: %w", entity.ErrStorageFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close overlay: %w", entity.ErrStorageFailure, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("%w: rename overlay: %w", entity.ErrStorageFailure, err)
	}

	return name, nil
}

// Open читает оверлей по ссылке
func (s *FileImageStore) Open(ctx context.Context, ref string) ([]byte, error) {
	_ = ctx
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("image %q: %w", ref, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read image %q: %w", entity.ErrStorageFailure, ref, err)
	}
	return data, nil
}

// resolve не выпускает ссылку за пределы каталога
func (s *FileImageStore) resolve(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", fmt.Errorf("image %q: %w", ref, entity.ErrNotFound)
	}
	return filepath.Join(s.dir, ref), nil
}

// uniqueName: секундная метка времени для читаемости плюс случайный суффикс
func (s *FileImageStore) uniqueName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("pothole_%s_%s.jpg", s.now().UTC().Format("20060102_150405"), id[:12])
}

// Проверка реализации интерфейса
var _ port.ImageStore = (*FileImageStore)(nil)
