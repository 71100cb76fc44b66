package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/leslobov/ameba/internal/infrastructure/storage"
	"github.com/leslobov/ameba/internal/remote"
	"github.com/leslobov/ameba/pkg/api"
	"github.com/leslobov/ameba/pkg/logger"
)

// Источники конфигурации игры
const (
	sourceStore    = "config store"
	sourceSnapshot = "snapshot"
	sourceDefaults = "defaults"
)

// ConfigOptions флаги подкоманды config. Нулевое значение - не менять.
type ConfigOptions struct {
	reset         bool
	rows          int
	columns       int
	totalEnergy   float64
	energyPerFood float64
	initialEnergy float64
}

func (o *ConfigOptions) changed() bool {
	return o.rows != 0 || o.columns != 0 || o.totalEnergy != 0 || o.energyPerFood != 0 || o.initialEnergy != 0
}

func (o *ConfigOptions) apply(cfg api.GameConfig) api.GameConfig {
	if o.rows != 0 {
		cfg.PlayDesk.Rows = o.rows
	}
	if o.columns != 0 {
		cfg.PlayDesk.Columns = o.columns
	}
	if o.totalEnergy != 0 {
		cfg.PlayDesk.TotalEnergy = o.totalEnergy
	}
	if o.energyPerFood != 0 {
		cfg.PlayDesk.EnergyPerFood = o.energyPerFood
	}
	if o.initialEnergy != 0 {
		cfg.Ameba.InitialEnergy = o.initialEnergy
	}
	return cfg
}

// loadGameConfig берет конфигурацию из хранилища и запоминает ее в снимке.
// Хранилище недоступно - последний снимок, нет снимка - значения по умолчанию.
func loadGameConfig(ctx context.Context, cs remote.ConfigStore, snapshots *storage.SnapshotStore) (api.GameConfig, string) {
	cfg, err := cs.Get(ctx)
	if err == nil {
		if err := snapshots.Set(cfg); err != nil {
			logger.Log.WithError(err).Warn("failed to save config snapshot")
		}
		return cfg, sourceStore
	}
	logger.Log.WithError(err).Warn("Config store unavailable, trying local snapshot")

	cfg, found, err := snapshots.Get()
	if err != nil {
		logger.Log.WithError(err).Warn("Local config snapshot is unreadable")
	}
	if found {
		return cfg, sourceSnapshot
	}
	return api.DefaultGameConfig(), sourceDefaults
}

// runConfig показывает, меняет или сбрасывает конфигурацию в хранилище
// и обновляет локальный снимок.
func runConfig(ctx context.Context, w io.Writer, cs remote.ConfigStore, snapshots *storage.SnapshotStore, o *ConfigOptions) error {
	var (
		cfg api.GameConfig
		err error
	)
	switch {
	case o.reset:
		cfg, err = cs.Reset(ctx)
	case o.changed():
		cfg, err = cs.Get(ctx)
		if err == nil {
			cfg, err = cs.Put(ctx, o.apply(cfg))
		}
	default:
		cfg, err = cs.Get(ctx)
	}
	if err != nil {
		return err
	}

	if err := snapshots.Set(cfg); err != nil {
		logger.Log.WithError(err).Warn("failed to save config snapshot")
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
