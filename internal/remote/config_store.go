package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/leslobov/ameba/pkg/api"
)

// ConfigStore внешнее хранилище конфигурации игры.
type ConfigStore interface {
	Get(ctx context.Context) (api.GameConfig, error)
	Put(ctx context.Context, cfg api.GameConfig) (api.GameConfig, error)
	Reset(ctx context.Context) (api.GameConfig, error)
}

func (c *HTTPClient) Get(ctx context.Context) (api.GameConfig, error) {
	return c.config(ctx, "config.get", http.MethodGet, "/api/config", nil)
}

// Put проверяет границы локально и только потом отправляет.
func (c *HTTPClient) Put(ctx context.Context, cfg api.GameConfig) (api.GameConfig, error) {
	if err := cfg.Validate(); err != nil {
		return api.GameConfig{}, fmt.Errorf("config.put: %w: %v", ErrInvalidRequest, err)
	}
	return c.config(ctx, "config.put", http.MethodPut, "/api/config", cfg)
}

func (c *HTTPClient) Reset(ctx context.Context) (api.GameConfig, error) {
	return c.config(ctx, "config.reset", http.MethodPost, "/api/config/reset", nil)
}

func (c *HTTPClient) config(ctx context.Context, op, method, path string, in any) (api.GameConfig, error) {
	var env api.ConfigEnvelope
	if err := c.do(ctx, op, method, path, in, &env); err != nil {
		return api.GameConfig{}, err
	}
	if !env.Success {
		return api.GameConfig{}, &EngineRejection{Op: op, Message: env.Message}
	}
	if env.Data == nil {
		return api.GameConfig{}, &EngineRejection{Op: op, Message: "config store returned no data"}
	}
	return *env.Data, nil
}
