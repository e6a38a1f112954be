package turnnode

import (
	"context"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

// CompleteReply is the last point where caller cancellation is honoured.
// The completion itself runs on the graph context and is bounded by the
// completer's own timeouts.
func CompleteReply(
	ctx context.Context,
	in *GraphState,
	completer contractx.Completer,
) (*GraphState, error) {
	if in == nil {
		return nil, nilState()
	}
	if err := checkRequest(in); err != nil {
		return nil, err
	}
	in.Phase = PhaseCompleting

	reply, err := completer.Complete(ctx, in.Instruction)
	if err != nil {
		return nil, fail(in, err)
	}
	in.Reply = reply
	return in, nil
}
