package engine

import (
	"time"

	"github.com/leslobov/ameba/internal/animation"
)

// Config хранит параметры запуска контроллера
type Config struct {
	// Seed - зерно начальной расстановки. 0 - от текущего времени.
	// При одинаковом Seed и конфигурации игры Reset дает одну и ту же доску.
	Seed int64
	// Interval период автошага
	Interval time.Duration
	// BatchSize число итераций RunBatch по умолчанию
	BatchSize int
	Timings   animation.Timings
}

// NewConfig создает конфиг по умолчанию (случайный сид)
func NewConfig() Config {
	return Config{
		Seed:      0,
		Interval:  time.Second,
		BatchSize: 100,
		Timings:   animation.DefaultTimings(),
	}
}
