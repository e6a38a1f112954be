package turnnode

import (
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
	tenantx "github.com/tanpawarit/tenant-assistant/assistant/tenant"
)

// GatherTenant runs on the caller's context: nothing has been spent yet, so a
// caller that goes away aborts the turn here.
func GatherTenant(
	in *GraphState,
	gateway contractx.TenantGateway,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, nilState()
	}
	in.Phase = PhaseGathering
	if err := checkRequest(in); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(requestContext(in), timeout)
	defer cancel()

	snap, err := tenantx.Gather(ctx, gateway, in.TenantID)
	if err != nil {
		return nil, fail(in, err)
	}
	in.Snapshot = snap

	zerolog.Ctx(ctx).Debug().
		Str("tenant_id", in.TenantID).
		Int("products", len(snap.Products)).
		Int("clients", len(snap.Clients)).
		Int("sales", len(snap.Sales)).
		Msg("tenant snapshot gathered")
	return in, nil
}
