package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leslobov/ameba/pkg/api"
	"github.com/leslobov/ameba/pkg/logger"
)

// Снимок больше этого размера считаем поврежденным.
const maxPayloadLen = 1 << 20

// ErrCorrupt файл снимка есть, но прочитать его нельзя.
var ErrCorrupt = errors.New("corrupt config snapshot")

// Get читает снимок. found == false, если файла нет.
func (s *SnapshotStore) Get() (cfg api.GameConfig, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return api.GameConfig{}, false, nil
	}
	if err != nil {
		return api.GameConfig{}, false, err
	}
	defer f.Close()

	cfg, savedAt, err := readBinary(f)
	if err != nil {
		return api.GameConfig{}, false, err
	}

	logger.Component("storage").WithFields(logrus.Fields{
		"path":     s.Path,
		"saved_at": savedAt.Format(time.RFC3339),
	}).Debug("Config snapshot loaded")
	return cfg, true, nil
}

func readBinary(r io.Reader) (api.GameConfig, time.Time, error) {
	var cfg api.GameConfig

	// 1. Читаем заголовок целиком
	var header SnapshotFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return cfg, time.Time{}, fmt.Errorf("%w: failed to read header: %v", ErrCorrupt, err)
	}

	// Валидация
	if string(header.Magic[:]) != MagicHeader {
		return cfg, time.Time{}, fmt.Errorf("%w: invalid magic", ErrCorrupt)
	}
	if header.Version != Version1 {
		return cfg, time.Time{}, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}
	if header.PayloadLen > maxPayloadLen {
		return cfg, time.Time{}, fmt.Errorf("%w: payload length %d", ErrCorrupt, header.PayloadLen)
	}

	// 2. Читаем тело
	payload := make([]byte, header.PayloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return cfg, time.Time{}, fmt.Errorf("%w: failed to read payload: %v", ErrCorrupt, err)
	}
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return cfg, time.Time{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return cfg, time.Unix(0, header.SavedAt).UTC(), nil
}
