package turnnode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

var (
	ErrInvalidTenant  = fmt.Errorf("%w: tenant id is empty", contractx.ErrValidation)
	ErrInvalidUser    = fmt.Errorf("%w: user id is empty", contractx.ErrValidation)
	ErrInvalidMessage = fmt.Errorf("%w: message is empty", contractx.ErrValidation)
)

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	st := &GraphState{
		RequestCtx: in.RequestCtx,
		Phase:      PhaseReceived,
	}

	st.TenantID = strings.TrimSpace(in.TenantID)
	if st.TenantID == "" {
		return nil, fail(st, ErrInvalidTenant)
	}
	st.UserID = strings.TrimSpace(in.UserID)
	if st.UserID == "" {
		return nil, fail(st, ErrInvalidUser)
	}
	st.Message = strings.TrimSpace(in.Message)
	if st.Message == "" {
		return nil, fail(st, ErrInvalidMessage)
	}

	if err := checkRequest(st); err != nil {
		return nil, err
	}
	st.Now = nowFn().UTC()
	return st, nil
}
