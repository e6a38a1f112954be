package turnnode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, nilState()
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fail(in, fmt.Errorf("%w: reply is empty", contractx.ErrCompletionRejected))
	}
	in.Phase = PhaseDone

	return GraphOutput{
		Reply:      reply,
		Turn:       in.Turn,
		TurnInput:  in.TurnInput,
		Truncation: in.Instruction.Truncation,
		PersistErr: in.PersistErr,
	}, nil
}
