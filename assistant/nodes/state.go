package turnnode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

type Phase string

const (
	PhaseReceived   Phase = "received"
	PhaseGathering  Phase = "gathering"
	PhaseAssembling Phase = "assembling"
	PhaseCompleting Phase = "completing"
	PhasePersisting Phase = "persisting"
	PhaseDone       Phase = "done"
	PhaseErrored    Phase = "errored"
)

type GraphInput struct {
	// RequestCtx is the caller's context. The graph itself runs detached so
	// that a turn which reached the provider is always carried to the store.
	RequestCtx context.Context

	TenantID string
	UserID   string
	Message  string
}

type GraphOutput struct {
	Reply      string
	Turn       *contractx.Turn
	TurnInput  contractx.TurnInput
	Truncation contractx.TruncationReport
	PersistErr error
}

type GraphState struct {
	RequestCtx context.Context

	TenantID string
	UserID   string
	Message  string
	Now      time.Time
	Phase    Phase

	Snapshot    contractx.Snapshot
	Instruction contractx.InstructionContext
	Reply       string

	TurnInput  contractx.TurnInput
	Turn       *contractx.Turn
	PersistErr error
}

// TurnError reports the phase a turn was in when it failed.
type TurnError struct {
	Phase Phase
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed while %s: %v", e.Phase, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

func fail(in *GraphState, err error) error {
	phase := PhaseReceived
	if in != nil {
		phase = in.Phase
		in.Phase = PhaseErrored
	}
	return &TurnError{Phase: phase, Err: err}
}

// checkRequest aborts the turn when the caller has gone away.
func checkRequest(in *GraphState) error {
	if in.RequestCtx == nil {
		return nil
	}
	if err := in.RequestCtx.Err(); err != nil {
		return fail(in, fmt.Errorf("turn canceled by caller: %w", err))
	}
	return nil
}

func requestContext(in *GraphState) context.Context {
	if in.RequestCtx == nil {
		return context.Background()
	}
	return in.RequestCtx
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func nilState() error {
	return fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
}
