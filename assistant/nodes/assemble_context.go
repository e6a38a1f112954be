package turnnode

import (
	"github.com/rs/zerolog"

	promptx "github.com/tanpawarit/tenant-assistant/assistant/prompt"
)

func AssembleContext(in *GraphState, assembler *promptx.Assembler) (*GraphState, error) {
	if in == nil {
		return nil, nilState()
	}
	in.Phase = PhaseAssembling
	if err := checkRequest(in); err != nil {
		return nil, err
	}

	in.Instruction = assembler.Assemble(in.Snapshot, in.Message)

	if tr := in.Instruction.Truncation; tr.Dropped() > 0 {
		zerolog.Ctx(requestContext(in)).Info().
			Str("tenant_id", in.TenantID).
			Int("dropped_products", tr.Products).
			Int("dropped_clients", tr.Clients).
			Int("dropped_sales", tr.Sales).
			Msg("instruction context truncated")
	}
	return in, nil
}
