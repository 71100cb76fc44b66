package engine

import (
	"errors"
	"time"

	"github.com/leslobov/ameba/internal/codec"
	"github.com/leslobov/ameba/internal/domain"
)

var (
	// ErrNotConfigured контроллер вызван до появления конфигурации или доски.
	ErrNotConfigured = errors.New("controller is not configured")
	// ErrSuperseded результат пришел после Reset/Close и отброшен.
	ErrSuperseded = errors.New("result superseded by reset")
	// ErrIntervalTooShort интервал автошага меньше минимального.
	ErrIntervalTooShort = errors.New("auto-step interval too short")
)

// MinInterval минимальный период автошага.
const MinInterval = 50 * time.Millisecond

// Session снимок состояния шагового цикла для отображения.
type Session struct {
	Configured     bool
	InFlight       bool
	AutoStepping   bool
	Interval       time.Duration
	IterationCount int
	LastStepAt     time.Time
	DroppedTicks   int
	LastError      string
	Generation     uint64
}

// StepReport итог одного успешного шага.
type StepReport struct {
	Generation          uint64
	Movements           []domain.Movement
	IterationsCompleted int
	Food                *domain.FoodGeneration
	Message             string
	Warnings            codec.Report
}

// BatchReport итог пакетной симуляции.
type BatchReport struct {
	Generation uint64
	Iterations int
	Stats      domain.SimulationStats
	Message    string
	Warnings   codec.Report
}

// Уровни уведомлений.
const (
	NoticeInfo  = "info"
	NoticeWarn  = "warn"
	NoticeError = "error"
)

// Notice сообщение для пользователя: ошибки автошага, проблемы данных.
type Notice struct {
	Level string
	Text  string
	At    time.Time
}
