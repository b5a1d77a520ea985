package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Типизированные ошибки загрузки; сервис каталога трактует любую из них
// как жёсткий отказ всей операции create/update
var (
	ErrNoFile   = errors.New("no image file provided")
	ErrBadType  = errors.New("invalid file type, only jpg, jpeg, png, webp are allowed")
	ErrTooLarge = errors.New("file size exceeds the maximum limit")
	ErrIO       = errors.New("failed to store uploaded file")
)

const MaxSize = 5 * 1024 * 1024 // 5MB

var allowedTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Store — хранилище изображений товаров на локальном диске
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save валидирует и сохраняет изображение, возвращая ссылку (относительный путь).
// Имя файла генерируется заново, чтобы не зависеть от пользовательского ввода
func (s *Store) Save(filename string, size int64, r io.Reader) (string, error) {
	if filename == "" || r == nil {
		return "", ErrNoFile
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedTypes[ext] {
		return "", ErrBadType
	}
	if size > MaxSize {
		return "", ErrTooLarge
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}

	ref := filepath.Join(s.dir, uuid.NewString()+ext)
	dst, err := os.Create(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer dst.Close()

	// ограничиваем чтение на случай, если заявленный размер меньше фактического
	written, err := io.Copy(dst, io.LimitReader(r, MaxSize+1))
	if err != nil {
		os.Remove(ref)
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	if written > MaxSize {
		os.Remove(ref)
		return "", ErrTooLarge
	}
	return ref, nil
}

// Remove удаляет ранее сохранённый файл; вызывается, когда операция,
// ради которой файл сохранялся, была отклонена
func (s *Store) Remove(ref string) error {
	if ref == "" {
		return nil
	}
	if err := os.Remove(ref); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}
