package remote

import (
	"errors"
	"fmt"
)

// TransportError - движок недоступен, таймаут или нечитаемый ответ.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// EngineRejection - движок ответил, но отказал (success=false или не-2xx).
// Message показывается пользователю как есть.
type EngineRejection struct {
	Op         string
	Message    string
	StatusCode int
}

func (e *EngineRejection) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: rejected (%d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: rejected: %s", e.Op, e.Message)
}

// ErrInvalidRequest запрос не прошел локальную проверку и не отправлялся.
var ErrInvalidRequest = errors.New("invalid request")

// UserMessage текст ошибки для показа пользователю.
// Для отказа движка - его сообщение без обвязки.
func UserMessage(err error) string {
	var rej *EngineRejection
	if errors.As(err, &rej) {
		return rej.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		return "engine unavailable: " + te.Err.Error()
	}
	return err.Error()
}
