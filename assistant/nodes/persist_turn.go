package turnnode

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

// PersistTurn never fails the graph: the reply already exists, so a store
// failure is recorded on the state and reported next to the reply.
func PersistTurn(
	ctx context.Context,
	in *GraphState,
	store contractx.TranscriptStore,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, nilState()
	}
	in.Phase = PhasePersisting
	in.TurnInput = contractx.TurnInput{
		TenantID:      in.TenantID,
		UserID:        in.UserID,
		UserText:      in.Message,
		AssistantText: in.Reply,
		At:            in.Now,
	}

	pctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	turn, err := store.AppendTurn(pctx, in.TurnInput)
	if err != nil {
		in.PersistErr = err
		zerolog.Ctx(ctx).Error().
			Err(err).
			Str("tenant_id", in.TenantID).
			Str("user_id", in.UserID).
			Msg("transcript append failed")
		return in, nil
	}
	in.Turn = &turn
	return in, nil
}
