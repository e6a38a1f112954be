package transcript

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

func validateInput(in contractx.TurnInput) error {
	switch {
	case strings.TrimSpace(in.TenantID) == "":
		return fmt.Errorf("%w: tenant id is empty", contractx.ErrValidation)
	case strings.TrimSpace(in.UserID) == "":
		return fmt.Errorf("%w: user id is empty", contractx.ErrValidation)
	case strings.TrimSpace(in.UserText) == "":
		return fmt.Errorf("%w: user text is empty", contractx.ErrValidation)
	case strings.TrimSpace(in.AssistantText) == "":
		return fmt.Errorf("%w: assistant text is empty", contractx.ErrValidation)
	}
	return nil
}

func validateOwner(tenantID, userID string) error {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: tenant id and user id are required", contractx.ErrValidation)
	}
	return nil
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
