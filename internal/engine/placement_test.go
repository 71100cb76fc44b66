package engine

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/leslobov/ameba/internal/domain"
)

func TestInitialCounts(t *testing.T) {
	tests := []struct {
		name       string
		cfg        domain.GameConfig
		wantFoods  int
		wantAmebas int
	}{
		{
			name:       "10x10 board",
			cfg:        domain.GameConfig{Rows: 10, Columns: 10, TotalEnergy: 1000, EnergyPerFood: 50},
			wantFoods:  20,
			wantAmebas: 5,
		},
		{
			name:       "fractional food count is floored",
			cfg:        domain.GameConfig{Rows: 32, Columns: 32, TotalEnergy: 1030, EnergyPerFood: 50},
			wantFoods:  20,
			wantAmebas: 51,
		},
		{
			name:       "at least one ameba",
			cfg:        domain.GameConfig{Rows: 3, Columns: 3, TotalEnergy: 100, EnergyPerFood: 50},
			wantFoods:  2,
			wantAmebas: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			foods, amebas := InitialCounts(tt.cfg)
			if foods != tt.wantFoods || amebas != tt.wantAmebas {
				t.Errorf("InitialCounts() = %d, %d; want %d, %d", foods, amebas, tt.wantFoods, tt.wantAmebas)
			}
		})
	}
}

func TestPlaceInitialScenario(t *testing.T) {
	cfg := domain.GameConfig{Rows: 10, Columns: 10, TotalEnergy: 1000, EnergyPerFood: 50, AmebaInitialEnergy: 120}
	b := PlaceInitial(cfg, rand.New(rand.NewSource(1)))

	if err := b.Validate(); err != nil {
		t.Fatalf("invalid board: %v", err)
	}
	if got := b.Count(domain.CellFood); got != 20 {
		t.Errorf("foods = %d, want 20", got)
	}
	if got := b.Count(domain.CellAmeba); got != 5 {
		t.Errorf("amebas = %d, want 5", got)
	}
	if got := b.Count(domain.CellEmpty); got != 75 {
		t.Errorf("empty = %d, want 75", got)
	}

	for _, c := range b.Cells {
		switch c.Kind {
		case domain.CellFood:
			if c.Energy != 50 {
				t.Errorf("food %v energy = %v, want 50", c.Pos, c.Energy)
			}
		case domain.CellAmeba:
			if c.Energy != 120 {
				t.Errorf("ameba %v energy = %v, want 120", c.Pos, c.Energy)
			}
		}
		if !c.Animation.IsNone() {
			t.Errorf("fresh board has animation at %v", c.Pos)
		}
	}
}

func TestPlaceInitialDeterministicGivenSeed(t *testing.T) {
	cfg := domain.GameConfig{Rows: 25, Columns: 17, TotalEnergy: 5000, EnergyPerFood: 40, AmebaInitialEnergy: 100}

	a := PlaceInitial(cfg, rand.New(rand.NewSource(99)))
	b := PlaceInitial(cfg, rand.New(rand.NewSource(99)))
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different boards")
	}

	c := PlaceInitial(cfg, rand.New(rand.NewSource(100)))
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced identical boards")
	}
}

func TestPlaceInitialCountsLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		cfg := domain.GameConfig{
			Rows:               10 + rng.Intn(30),
			Columns:            10 + rng.Intn(30),
			TotalEnergy:        float64(1000 + rng.Intn(2000)),
			EnergyPerFood:      float64(50 + rng.Intn(150)),
			AmebaInitialEnergy: 100,
		}
		b := PlaceInitial(cfg, rng)
		foods, amebas := InitialCounts(cfg)

		if got := b.Count(domain.CellFood); got != foods {
			t.Fatalf("%+v: foods = %d, want %d", cfg, got, foods)
		}
		if got := b.Count(domain.CellAmeba); got != amebas {
			t.Fatalf("%+v: amebas = %d, want %d", cfg, got, amebas)
		}
		if got := b.Count(domain.CellEmpty); got != cfg.Rows*cfg.Columns-foods-amebas {
			t.Fatalf("%+v: empty = %d", cfg, got)
		}
	}
}

func TestPlaceInitialOverfullBoard(t *testing.T) {
	// 100 единиц еды на 16 клеток: еда занимает все, амебам места нет
	cfg := domain.GameConfig{Rows: 4, Columns: 4, TotalEnergy: 5000, EnergyPerFood: 50}
	b := PlaceInitial(cfg, rand.New(rand.NewSource(3)))

	if b.Count(domain.CellFood) != 16 || b.Count(domain.CellAmeba) != 0 {
		t.Errorf("foods=%d amebas=%d, want 16 and 0", b.Count(domain.CellFood), b.Count(domain.CellAmeba))
	}
}

func TestControllerResetUsesSeed(t *testing.T) {
	a, _ := newTestController(t, newFakeEngine(), MinInterval)
	b, _ := newTestController(t, newFakeEngine(), MinInterval)

	ba, _ := a.Store().Current()
	bb, _ := b.Store().Current()
	if !reflect.DeepEqual(ba, bb) {
		t.Error("controllers with the same seed built different boards")
	}

	if err := a.Reset(); err != nil {
		t.Fatal(err)
	}
	after, _ := a.Store().Current()
	if after.Count(domain.CellFood) != 20 || after.Count(domain.CellAmeba) != 5 {
		t.Errorf("reset board: foods=%d amebas=%d", after.Count(domain.CellFood), after.Count(domain.CellAmeba))
	}
}
