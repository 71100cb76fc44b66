// Package codec переводит доску между плотным представлением (BoardState)
// и разреженным снимком сущностей (EntitySnapshot), которым обмениваемся с движком.
package codec

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/pkg/logger"
)

// Энергия по умолчанию, если движок не прислал ее для сущности.
const (
	DefaultAmebaEnergy = 100.0
	DefaultFoodEnergy  = 50.0
)

// WarningKind тип проблемы качества данных при декодировании.
type WarningKind uint8

const (
	WarnOutOfBounds WarningKind = iota + 1
	WarnDuplicatePosition
)

func (k WarningKind) String() string {
	switch k {
	case WarnOutOfBounds:
		return "out_of_bounds"
	case WarnDuplicatePosition:
		return "duplicate_position"
	default:
		return "unknown"
	}
}

// Warning одна некритичная проблема в снимке.
type Warning struct {
	Kind   WarningKind
	Entity domain.CellKind
	Pos    domain.Position
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s at %s", w.Kind, w.Entity, w.Pos)
}

// Report собирает предупреждения одного вызова Decode.
type Report struct {
	Warnings []Warning
}

// Count считает предупреждения заданного типа.
func (r Report) Count(kind WarningKind) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Clean true, если снимок был без замечаний.
func (r Report) Clean() bool {
	return len(r.Warnings) == 0
}

// Encode проходит по доске один раз и собирает непустые клетки в списки сущностей.
// Энергия берется из клетки как есть.
func Encode(board domain.BoardState) domain.EntitySnapshot {
	snap := domain.EntitySnapshot{
		Amebas:  []domain.Entity{},
		Foods:   []domain.Entity{},
		Rows:    board.Rows,
		Columns: board.Columns,
	}
	for _, c := range board.Cells {
		energy := c.Energy
		switch c.Kind {
		case domain.CellAmeba:
			snap.Amebas = append(snap.Amebas, domain.Entity{Pos: c.Pos, Energy: &energy})
		case domain.CellFood:
			snap.Foods = append(snap.Foods, domain.Entity{Pos: c.Pos, Energy: &energy})
		}
	}
	return snap
}

// Decode строит доску rows x columns из снимка.
//
// Размеры задает вызывающий, а не snap.Rows/Columns: локальная конфигурация
// главнее, и устаревший размер от движка не меняет отрисовываемую доску.
// Если вызывающий передал неположительные размеры, берутся размеры из снимка.
//
// Сущности вне доски отбрасываются, на одной позиции побеждает последняя
// записанная (амебы пишутся первыми, затем еда). Оба случая попадают в Report
// и в лог, но декодирование не падает.
func Decode(snap domain.EntitySnapshot, rows, columns int) (domain.BoardState, Report) {
	if rows <= 0 || columns <= 0 {
		rows, columns = snap.Rows, snap.Columns
	}

	board := domain.NewBoard(rows, columns)
	var report Report
	written := make(map[domain.Position]bool, len(snap.Amebas)+len(snap.Foods))

	place := func(e domain.Entity, kind domain.CellKind, fallback float64) {
		if !board.InBounds(e.Pos) {
			report.Warnings = append(report.Warnings, Warning{Kind: WarnOutOfBounds, Entity: kind, Pos: e.Pos})
			return
		}
		if written[e.Pos] {
			report.Warnings = append(report.Warnings, Warning{Kind: WarnDuplicatePosition, Entity: kind, Pos: e.Pos})
		}
		written[e.Pos] = true

		energy := fallback
		if e.Energy != nil {
			energy = *e.Energy
		}
		board.Cells[board.Index(e.Pos)] = domain.Cell{Pos: e.Pos, Kind: kind, Energy: energy}
	}

	for _, a := range snap.Amebas {
		place(a, domain.CellAmeba, DefaultAmebaEnergy)
	}
	for _, f := range snap.Foods {
		place(f, domain.CellFood, DefaultFoodEnergy)
	}

	logWarnings(report, rows, columns)
	return board, report
}

func logWarnings(r Report, rows, columns int) {
	if r.Clean() {
		return
	}
	log := logger.Component("codec")
	for _, w := range r.Warnings {
		log.WithFields(logrus.Fields{
			"warning": w.Kind.String(),
			"entity":  w.Entity.String(),
			"row":     w.Pos.Row,
			"col":     w.Pos.Col,
			"rows":    rows,
			"columns": columns,
		}).Warn("snapshot data quality issue")
	}
}
