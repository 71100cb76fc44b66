package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leslobov/ameba/internal/engine"
	"github.com/leslobov/ameba/internal/remote"
	"github.com/leslobov/ameba/pkg/api"
	"github.com/leslobov/ameba/pkg/logger"
)

// Dispatch выполняет команду зрителя и возвращает ответы для него.
// Изменения доски приходят отдельно, через подписку на BoardStore.
func (s *Server) Dispatch(ctx context.Context, cmd api.ViewerCommand) []api.ViewerMessage {
	ctrl := s.Controller
	log := logger.Log.WithFields(logrus.Fields{"component": "server", "action": cmd.Action})

	switch cmd.Action {
	case api.ActionStep:
		rep, err := ctrl.Step(ctx)
		if err != nil {
			return s.failure(log, err)
		}
		if rep == nil {
			return []api.ViewerMessage{infoNotice("step already in flight")}
		}
		return []api.ViewerMessage{s.sessionMessage()}

	case api.ActionToggleAuto:
		ctrl.ToggleAutoStep()
		return []api.ViewerMessage{s.sessionMessage()}

	case api.ActionSetInterval:
		var p api.IntervalPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return []api.ViewerMessage{errorNotice(err.Error())}
		}
		if err := ctrl.SetInterval(time.Duration(p.IntervalMs) * time.Millisecond); err != nil {
			return []api.ViewerMessage{errorNotice(err.Error())}
		}
		return []api.ViewerMessage{s.sessionMessage()}

	case api.ActionBatch:
		var p api.BatchPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return []api.ViewerMessage{errorNotice(err.Error())}
		}
		rep, err := ctrl.RunBatch(ctx, p.Iterations)
		if err != nil {
			return s.failure(log, err)
		}
		if rep == nil {
			return []api.ViewerMessage{infoNotice("step already in flight")}
		}
		return []api.ViewerMessage{{
			Type:       api.MessageBatch,
			Generation: rep.Generation,
			Stats: &api.SimulationStatistics{
				FinalAmebaCount: rep.Stats.FinalAmebaCount,
				FinalFoodCount:  rep.Stats.FinalFoodCount,
				TotalEnergy:     rep.Stats.TotalEnergy,
			},
		}, s.sessionMessage()}

	case api.ActionReset:
		if err := ctrl.Reset(); err != nil {
			return s.failure(log, err)
		}
		return []api.ViewerMessage{s.sessionMessage()}

	case api.ActionStatus:
		st, err := ctrl.EngineStatus(ctx)
		if err != nil {
			return s.failure(log, err)
		}
		return []api.ViewerMessage{{Type: api.MessageStatus, Status: statusView(st)}}

	default:
		return []api.ViewerMessage{errorNotice(fmt.Sprintf("unknown action %q", cmd.Action))}
	}
}

func (s *Server) sessionMessage() api.ViewerMessage {
	return api.ViewerMessage{
		Type:       api.MessageSession,
		Generation: s.Controller.Store().Generation(),
		Session:    SessionView(s.Controller.Session()),
	}
}

func (s *Server) failure(log *logrus.Entry, err error) []api.ViewerMessage {
	if errors.Is(err, engine.ErrSuperseded) {
		return []api.ViewerMessage{infoNotice("result discarded after reset")}
	}
	log.WithError(err).Warn("Viewer command failed")
	return []api.ViewerMessage{errorNotice(remote.UserMessage(err)), s.sessionMessage()}
}

// decodePayload разбирает payload и проверяет его, если тип умеет Validate.
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("payload is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}
	if val, ok := v.(api.Validator); ok {
		return val.Validate()
	}
	return nil
}
