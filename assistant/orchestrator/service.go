package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
	nodex "github.com/tanpawarit/tenant-assistant/assistant/nodes"
	promptx "github.com/tanpawarit/tenant-assistant/assistant/prompt"
)

type (
	Phase     = nodex.Phase
	TurnError = nodex.TurnError
)

const (
	PhaseReceived   = nodex.PhaseReceived
	PhaseGathering  = nodex.PhaseGathering
	PhaseAssembling = nodex.PhaseAssembling
	PhaseCompleting = nodex.PhaseCompleting
	PhasePersisting = nodex.PhasePersisting
	PhaseDone       = nodex.PhaseDone
	PhaseErrored    = nodex.PhaseErrored
)

var (
	ErrInvalidTenant  = nodex.ErrInvalidTenant
	ErrInvalidUser    = nodex.ErrInvalidUser
	ErrInvalidMessage = nodex.ErrInvalidMessage
)

type Config struct {
	GatherTimeout  time.Duration `split_words:"true" default:"5s"`
	PersistTimeout time.Duration `split_words:"true" default:"5s"`
}

type Reply struct {
	Text      string `json:"reply"`
	Persisted bool   `json:"persisted"`
	TurnID    string `json:"turn_id,omitempty"`
	Truncated int    `json:"truncated_facts,omitempty"`
}

// PersistenceError is returned next to a valid Reply when the turn could not
// be written. It carries everything RetryPersist needs.
type PersistenceError struct {
	Input contractx.TurnInput
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("reply produced but transcript not persisted: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == contractx.ErrPersistenceFailure
}

type Orchestrator struct {
	gateway   contractx.TenantGateway
	assembler *promptx.Assembler
	completer contractx.Completer
	store     contractx.TranscriptStore

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	gatherTimeout  time.Duration
	persistTimeout time.Duration

	now func() time.Time
}

func New(
	gateway contractx.TenantGateway,
	assembler *promptx.Assembler,
	completer contractx.Completer,
	store contractx.TranscriptStore,
	cfg Config,
) (*Orchestrator, error) {
	if gateway == nil {
		return nil, errors.New("tenant gateway is required")
	}
	if assembler == nil {
		return nil, errors.New("context assembler is required")
	}
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if store == nil {
		return nil, errors.New("transcript store is required")
	}

	o := &Orchestrator{
		gateway:        gateway,
		assembler:      assembler,
		completer:      completer,
		store:          store,
		gatherTimeout:  cfg.GatherTimeout,
		persistTimeout: cfg.PersistTimeout,
		now:            time.Now,
	}

	graphRunner, err := o.compileSubmitTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// SubmitTurn runs one user turn. Failures before the reply exists come back
// as *TurnError and leave no trace in the transcript. When only the write
// fails, the reply is returned together with a *PersistenceError.
func (o *Orchestrator) SubmitTurn(ctx context.Context, tenantID, userID, message string) (Reply, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("tenant_id", tenantID).
		Str("user_id", userID).
		Logger()
	ctx = logger.WithContext(ctx)

	out, err := o.graphRunner.Invoke(context.WithoutCancel(ctx), nodex.GraphInput{
		RequestCtx: ctx,
		TenantID:   tenantID,
		UserID:     userID,
		Message:    message,
	})
	if err != nil {
		var te *TurnError
		if !errors.As(err, &te) {
			te = &TurnError{Phase: PhaseErrored, Err: err}
		}
		logger.Warn().Err(te.Err).Str("phase", string(te.Phase)).Msg("turn failed")
		return Reply{}, te
	}

	reply := Reply{
		Text:      out.Reply,
		Persisted: out.PersistErr == nil,
		Truncated: out.Truncation.Dropped(),
	}
	if out.Turn != nil {
		reply.TurnID = out.Turn.ID
	}
	if out.PersistErr != nil {
		return reply, &PersistenceError{Input: out.TurnInput, Err: out.PersistErr}
	}

	logger.Info().Str("turn_id", reply.TurnID).Msg("turn completed")
	return reply, nil
}

// RetryPersist writes a turn whose reply was already delivered. The provider
// is not called again.
func (o *Orchestrator) RetryPersist(ctx context.Context, perr *PersistenceError) (Reply, error) {
	if perr == nil {
		return Reply{}, fmt.Errorf("%w: persistence error is nil", contractx.ErrValidation)
	}

	if o.persistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.persistTimeout)
		defer cancel()
	}

	turn, err := o.store.AppendTurn(ctx, perr.Input)
	if err != nil {
		return Reply{Text: perr.Input.AssistantText}, &PersistenceError{Input: perr.Input, Err: err}
	}
	return Reply{
		Text:      perr.Input.AssistantText,
		Persisted: true,
		TurnID:    turn.ID,
	}, nil
}

// Transcript lists persisted entries for one user of one tenant.
func (o *Orchestrator) Transcript(ctx context.Context, tenantID, userID string, q contractx.ListQuery) ([]contractx.TranscriptEntry, error) {
	return o.store.List(ctx, tenantID, userID, q)
}
