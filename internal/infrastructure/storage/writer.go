// Package storage - локальный запасной снимок конфигурации игры
// на случай, когда хранилище конфигурации недоступно.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/leslobov/ameba/pkg/api"
	"github.com/leslobov/ameba/pkg/logger"
)

const (
	MagicHeader string = `AMCF` // 4 байта
	Version1    uint32 = 1
)

// SnapshotFileHeader - точное представление заголовка файла в памяти.
// binary.Write умеет писать это целиком, так как тут нет слайсов и строк, только массивы и числа.
type SnapshotFileHeader struct {
	Magic      [4]byte // 4 байта
	Version    uint32  // 4 байта
	SavedAt    int64   // 8 байт, unix nano
	PayloadLen uint32  // 4 байта
}

// SnapshotStore хранит одну конфигурацию в файле: заголовок + JSON.
type SnapshotStore struct {
	Path string

	mu  sync.Mutex
	now func() time.Time
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{Path: path, now: time.Now}
}

// DefaultPath путь снимка по умолчанию в пользовательском каталоге конфигурации.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ameba", "config.amcf")
}

// Set атомарно перезаписывает снимок: пишем во временный файл и переименовываем.
func (s *SnapshotStore) Set(cfg api.GameConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".config-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // после Rename это no-op

	if err := writeBinary(tmp, cfg, s.now()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return err
	}

	logger.Component("storage").WithField("path", s.Path).Debug("Config snapshot saved")
	return nil
}

// Clear удаляет снимок. Отсутствие файла ошибкой не считается.
func (s *SnapshotStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func writeBinary(w io.Writer, cfg api.GameConfig, savedAt time.Time) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("payload too long: %d", len(payload))
	}

	// 1. Подготавливаем и пишем заголовок
	header := SnapshotFileHeader{
		Version:    Version1,
		SavedAt:    savedAt.UnixNano(),
		PayloadLen: uint32(len(payload)),
	}
	copy(header.Magic[:], MagicHeader) // Копируем строку в массив [4]byte

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// 2. Тело
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}
