package utils

import (
	crand "crypto/rand"
	"encoding/hex"
	"hash/fnv"
	"math/rand"
	"time"
)

// GenerateID создает простой уникальный ID (замена UUID для снижения зависимостей).
// Используется для ID зрителей и X-Request-ID запросов к движку.
func GenerateID() string {
	b := make([]byte, 8) // 16 символов hex
	if _, err := crand.Read(b); err != nil {
		panic("failed to generate random ID: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// ResolveSeed возвращает seed как есть, а 0 заменяет на текущее время.
func ResolveSeed(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

// NewRand создает локальный генератор. Глобальный rand не трогаем,
// чтобы расстановка при одинаковом seed была воспроизводимой.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(ResolveSeed(seed)))
}

// StringToSeed превращает произвольную строку (например, фразу из --seed-phrase) в seed.
func StringToSeed(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}
