package remote

import (
	"github.com/sirupsen/logrus"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/pkg/api"
	"github.com/leslobov/ameba/pkg/logger"
)

func toAPIPosition(p domain.Position) api.Position {
	return api.Position{Row: p.Row, Column: p.Col}
}

func fromAPIPosition(p api.Position) domain.Position {
	return domain.Position{Row: p.Row, Col: p.Column}
}

func toAPIEntities(list []domain.Entity, kind string) []api.CellEntity {
	out := make([]api.CellEntity, 0, len(list))
	for _, e := range list {
		out = append(out, api.CellEntity{Type: kind, Energy: e.Energy, Position: toAPIPosition(e.Pos)})
	}
	return out
}

// Тип сущности определяется списком, в котором она пришла.
func fromAPIEntities(list []api.CellEntity) []domain.Entity {
	out := make([]domain.Entity, 0, len(list))
	for _, e := range list {
		out = append(out, domain.Entity{Pos: fromAPIPosition(e.Position), Energy: e.Energy})
	}
	return out
}

// ToGameState переводит снимок в JSON-форму движка.
func ToGameState(s domain.EntitySnapshot) *api.GameState {
	return &api.GameState{
		Amebas:    toAPIEntities(s.Amebas, api.EntityTypeAmeba),
		Foods:     toAPIEntities(s.Foods, api.EntityTypeFood),
		BoardSize: api.BoardSize{Rows: s.Rows, Columns: s.Columns},
	}
}

// mislabeled считает сущности, чей тег type называет другой тип, чем список.
// Пустой тег допустим.
func mislabeled(list []api.CellEntity, want domain.CellKind) int {
	n := 0
	for _, e := range list {
		if e.Type == "" {
			continue
		}
		if k, ok := domain.ParseCellKind(e.Type); !ok || k != want {
			n++
		}
	}
	return n
}

// FromGameState обратное преобразование. Расхождения тегов type только логируются.
func FromGameState(gs api.GameState) domain.EntitySnapshot {
	amebas, foods := mislabeled(gs.Amebas, domain.CellAmeba), mislabeled(gs.Foods, domain.CellFood)
	if amebas+foods > 0 {
		logger.Component("remote").WithFields(logrus.Fields{
			"amebas": amebas,
			"foods":  foods,
		}).Warn("Engine entities carry a type tag of another list")
	}
	return domain.EntitySnapshot{
		Amebas:  fromAPIEntities(gs.Amebas),
		Foods:   fromAPIEntities(gs.Foods),
		Rows:    gs.BoardSize.Rows,
		Columns: gs.BoardSize.Columns,
	}
}

func fromAPIMovements(list []api.MovementResult) []domain.Movement {
	out := make([]domain.Movement, 0, len(list))
	for _, m := range list {
		mv := domain.Movement{
			Ameba:        fromAPIPosition(m.AmebaPosition),
			From:         fromAPIPosition(m.OldPosition),
			To:           fromAPIPosition(m.NewPosition),
			EnergyChange: m.EnergyChange,
		}
		if m.FoodConsumed != nil {
			p := fromAPIPosition(*m.FoodConsumed)
			mv.FoodConsumed = &p
		}
		out = append(out, mv)
	}
	return out
}

func fromMoveResponse(r api.MoveResponse) *domain.StepResult {
	res := &domain.StepResult{
		Message:             r.Message,
		Movements:           fromAPIMovements(r.Movements),
		IterationsCompleted: r.IterationsCompleted,
	}
	if r.UpdatedGameState != nil {
		snap := FromGameState(*r.UpdatedGameState)
		res.Snapshot = &snap
	}
	if fg := r.FoodGeneration; fg != nil {
		res.Food = &domain.FoodGeneration{
			Consumed:  fg.TotalFoodsConsumed,
			Generated: fg.TotalFoodsGenerated,
			Net:       fg.NetFoodChange,
		}
	}
	return res
}

func fromSimulationResponse(r api.SimulationResponse) *domain.SimulationResult {
	return &domain.SimulationResult{
		Message:         r.Message,
		TotalIterations: r.TotalIterations,
		Final:           FromGameState(r.FinalGameState),
		Stats: domain.SimulationStats{
			FinalAmebaCount: r.Statistics.FinalAmebaCount,
			FinalFoodCount:  r.Statistics.FinalFoodCount,
			TotalEnergy:     r.Statistics.TotalEnergy,
		},
	}
}

func fromMovementStatus(s api.MovementStatus) *domain.EngineStatus {
	return &domain.EngineStatus{
		Loaded:     s.GameLoaded,
		AmebaCount: s.AmebaCount,
		FoodCount:  s.FoodCount,
		Rows:       s.BoardSize.Rows,
		Columns:    s.BoardSize.Columns,
		Message:    s.Message,
	}
}

// ToDomainConfig берет из полной конфигурации то, что нужно клиенту.
func ToDomainConfig(c api.GameConfig) domain.GameConfig {
	return domain.GameConfig{
		Rows:               c.PlayDesk.Rows,
		Columns:            c.PlayDesk.Columns,
		TotalEnergy:        c.PlayDesk.TotalEnergy,
		EnergyPerFood:      c.PlayDesk.EnergyPerFood,
		AmebaInitialEnergy: c.Ameba.InitialEnergy,
	}
}
