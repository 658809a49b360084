package application

import (
	"context"

	"telegram-nutrition-bot/internal/domain/model"
)

type DispatchStatus int

const (
	StatusHandled DispatchStatus = iota
	StatusDuplicate
	StatusIgnored
	StatusFailed
)

func (s DispatchStatus) String() string {
	switch s {
	case StatusHandled:
		return "handled"
	case StatusDuplicate:
		return "duplicate"
	case StatusIgnored:
		return "ignored"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DispatchResult is the explicit outcome of handling one update.
type DispatchResult struct {
	Status DispatchStatus
	Err    error
}

func handled() DispatchResult { return DispatchResult{Status: StatusHandled} }
func ignored() DispatchResult { return DispatchResult{Status: StatusIgnored} }

func failed(err error) DispatchResult { return DispatchResult{Status: StatusFailed, Err: err} }

// resultOf maps a handler error onto a result.
func resultOf(err error) DispatchResult {
	if err != nil {
		return failed(err)
	}
	return handled()
}

// Dispatcher routes one deduplicated update.
type Dispatcher interface {
	Dispatch(ctx context.Context, u model.Update) DispatchResult
}
