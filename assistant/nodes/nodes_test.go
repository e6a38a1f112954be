package turnnode

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.FixedZone("X", 3600)) }

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	st, err := ValidateRequest(GraphInput{TenantID: " acme ", UserID: "u1", Message: " hi "}, fixedNow)
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if st.TenantID != "acme" || st.Message != "hi" || st.Phase != PhaseReceived {
		t.Fatalf("unexpected state: %#v", st)
	}
	if st.Now.Location() != time.UTC {
		t.Fatalf("Now must be UTC, got %v", st.Now.Location())
	}

	cases := []struct {
		in   GraphInput
		want error
	}{
		{GraphInput{UserID: "u1", Message: "hi"}, ErrInvalidTenant},
		{GraphInput{TenantID: "acme", Message: "hi"}, ErrInvalidUser},
		{GraphInput{TenantID: "acme", UserID: "u1", Message: "   "}, ErrInvalidMessage},
	}
	for _, tc := range cases {
		_, err := ValidateRequest(tc.in, fixedNow)
		if !errors.Is(err, tc.want) || !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("ValidateRequest(%#v) error = %v, want %v", tc.in, err, tc.want)
		}
	}
}

func TestValidateRequestCanceledCaller(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ValidateRequest(GraphInput{RequestCtx: ctx, TenantID: "acme", UserID: "u1", Message: "hi"}, fixedNow)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ValidateRequest() error = %v, want context.Canceled", err)
	}
}

type failingStore struct{ err error }

func (f failingStore) AppendTurn(ctx context.Context, in contractx.TurnInput) (contractx.Turn, error) {
	return contractx.Turn{}, f.err
}

func (f failingStore) List(ctx context.Context, tenantID, userID string, q contractx.ListQuery) ([]contractx.TranscriptEntry, error) {
	return nil, f.err
}

func TestPersistTurnRecordsFailureOnState(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("db down")
	st := &GraphState{TenantID: "acme", UserID: "u1", Message: "hi", Reply: "hello", Now: fixedNow()}

	out, err := PersistTurn(context.Background(), st, failingStore{err: storeErr}, time.Second)
	if err != nil {
		t.Fatalf("PersistTurn() error = %v, want nil", err)
	}
	if !errors.Is(out.PersistErr, storeErr) || out.Turn != nil {
		t.Fatalf("PersistErr = %v, Turn = %v", out.PersistErr, out.Turn)
	}
	if out.TurnInput.AssistantText != "hello" || out.TurnInput.UserText != "hi" {
		t.Fatalf("TurnInput = %#v", out.TurnInput)
	}

	final, err := FinalizeReply(out)
	if err != nil {
		t.Fatalf("FinalizeReply() error = %v", err)
	}
	if final.Reply != "hello" || final.PersistErr == nil {
		t.Fatalf("FinalizeReply() = %#v", final)
	}
}

func TestCompleteReplyHonoursCallerCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := &GraphState{RequestCtx: ctx, Phase: PhaseAssembling}

	_, err := CompleteReply(context.Background(), st, nil)
	var te *TurnError
	if !errors.As(err, &te) || te.Phase != PhaseAssembling {
		t.Fatalf("CompleteReply() error = %v, want TurnError in assembling", err)
	}
	if st.Phase != PhaseErrored {
		t.Fatalf("Phase = %s, want errored", st.Phase)
	}
}
