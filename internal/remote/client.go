// Package remote - граница с удаленным движком симуляции и хранилищем конфигурации.
// Все вызовы - запрос/ответ по HTTP с JSON.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/internal/version"
	"github.com/leslobov/ameba/pkg/api"
	"github.com/leslobov/ameba/pkg/logger"
	"github.com/leslobov/ameba/pkg/utils"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 10 * time.Second

	// Ответ движка на 1000 итераций на доске 100x100 укладывается с запасом.
	maxResponseBytes = 16 << 20
)

// SimulationClient - то, что клиенту нужно от движка.
type SimulationClient interface {
	Status(ctx context.Context) (*domain.EngineStatus, error)
	Step(ctx context.Context, snap domain.EntitySnapshot, iterations int) (*domain.StepResult, error)
	Simulate(ctx context.Context, snap domain.EntitySnapshot, iterations int) (*domain.SimulationResult, error)
}

// HTTPClient реализует SimulationClient и ConfigStore поверх net/http.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     *logrus.Entry
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger.Component("remote"),
	}
}

// BaseURL адрес движка без завершающего слеша.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

func (c *HTTPClient) Status(ctx context.Context) (*domain.EngineStatus, error) {
	var resp api.MovementStatus
	if err := c.do(ctx, "status", http.MethodGet, "/api/movement/status", nil, &resp); err != nil {
		return nil, err
	}
	return fromMovementStatus(resp), nil
}

// Step двигает симуляцию на iterations шагов от переданного снимка.
func (c *HTTPClient) Step(ctx context.Context, snap domain.EntitySnapshot, iterations int) (*domain.StepResult, error) {
	req := api.MoveRequest{GameState: ToGameState(snap), Iterations: iterations}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("step: %w: %v", ErrInvalidRequest, err)
	}

	var resp api.MoveResponse
	if err := c.do(ctx, "step", http.MethodPost, "/api/movement/move", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &EngineRejection{Op: "step", Message: resp.Message}
	}
	// Успех без снимка - это тоже отказ: частичных результатов не бывает
	if resp.UpdatedGameState == nil {
		return nil, &EngineRejection{Op: "step", Message: "engine returned no game state"}
	}
	return fromMoveResponse(resp), nil
}

// Simulate прогоняет iterations шагов и возвращает только финальный кадр.
func (c *HTTPClient) Simulate(ctx context.Context, snap domain.EntitySnapshot, iterations int) (*domain.SimulationResult, error) {
	req := api.SimulationRequest{GameState: ToGameState(snap), Iterations: iterations}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("simulate: %w: %v", ErrInvalidRequest, err)
	}

	var resp api.SimulationResponse
	if err := c.do(ctx, "simulate", http.MethodPost, "/api/movement/simulate", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &EngineRejection{Op: "simulate", Message: resp.Message}
	}
	return fromSimulationResponse(resp), nil
}

// Health проверяет, что движок жив.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

// do выполняет один запрос. out == nil - тело ответа не разбирается.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	requestID := utils.GenerateID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.log.WithFields(logrus.Fields{
		"op":         op,
		"status":     resp.StatusCode,
		"request_id": requestID,
		"duration":   time.Since(started).String(),
	}).Debug("Engine call finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &EngineRejection{Op: op, Message: errorDetail(resp.StatusCode, data), StatusCode: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorDetail достает {"detail": "..."} из тела ошибки.
// Валидационные ошибки приходят с detail-массивом, тогда отдаем тело целиком.
func errorDetail(status int, body []byte) string {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(status)
}
