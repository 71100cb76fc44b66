package engine

import (
	"math"
	"math/rand"

	"github.com/leslobov/ameba/internal/codec"
	"github.com/leslobov/ameba/internal/domain"
)

// AmebaShare доля клеток, занятых амебами при старте.
const AmebaShare = 0.05

// InitialCounts сколько еды и амеб ставит начальная расстановка.
func InitialCounts(cfg domain.GameConfig) (foods, amebas int) {
	if cfg.EnergyPerFood > 0 {
		foods = int(math.Floor(cfg.TotalEnergy / cfg.EnergyPerFood))
	}
	amebas = int(math.Floor(float64(cfg.Rows*cfg.Columns) * AmebaShare))
	if amebas < 1 {
		amebas = 1
	}
	return foods, amebas
}

// PlaceInitial строит стартовую доску локально, без обращения к движку.
//
// Позиции выбираются без повторов: частичная перетасовка Фишера-Йетса по всем
// индексам доски. Сначала ставится еда, потом амебы; если клеток не хватает,
// амеб получается меньше (как и еды, если ее больше, чем клеток).
func PlaceInitial(cfg domain.GameConfig, rng *rand.Rand) domain.BoardState {
	board := domain.NewBoard(cfg.Rows, cfg.Columns)
	total := len(board.Cells)
	if total == 0 {
		return board
	}

	foods, amebas := InitialCounts(cfg)
	if foods > total {
		foods = total
	}
	if amebas > total-foods {
		amebas = total - foods
	}

	amebaEnergy := cfg.AmebaInitialEnergy
	if amebaEnergy <= 0 {
		amebaEnergy = codec.DefaultAmebaEnergy
	}

	picked := foods + amebas
	idx := make([]int, total)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < picked; i++ {
		j := i + rng.Intn(total-i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	for i := 0; i < picked; i++ {
		cell := &board.Cells[idx[i]]
		if i < foods {
			cell.Kind, cell.Energy = domain.CellFood, cfg.EnergyPerFood
		} else {
			cell.Kind, cell.Energy = domain.CellAmeba, amebaEnergy
		}
	}
	return board
}
