package transcript

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

// MemoryStore keeps transcripts in process memory. Turns of one user are
// serialised by a per-user lock; different users never contend.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*userLog
	now   func() time.Time

	// faultAfterUser runs after the user entry is staged and before commit.
	faultAfterUser func(in contractx.TurnInput) error
}

type userLog struct {
	mu      sync.Mutex
	lastSeq int64
	entries []contractx.TranscriptEntry
}

var _ contractx.TranscriptStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*userLog),
		now:   time.Now,
	}
}

func (s *MemoryStore) log(userID string) *userLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.users[userID]
	if !ok {
		l = &userLog{}
		s.users[userID] = l
	}
	return l
}

func (s *MemoryStore) AppendTurn(ctx context.Context, in contractx.TurnInput) (contractx.Turn, error) {
	if err := validateInput(in); err != nil {
		return contractx.Turn{}, err
	}
	if err := ctx.Err(); err != nil {
		return contractx.Turn{}, fmt.Errorf("%w: %w", contractx.ErrPersistenceFailure, err)
	}

	at := in.At
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	l := s.log(in.UserID)
	l.mu.Lock()
	defer l.mu.Unlock()

	turnID := uuid.NewString()
	user := contractx.TranscriptEntry{
		ID:        uuid.NewString(),
		TurnID:    turnID,
		TenantID:  in.TenantID,
		UserID:    in.UserID,
		Seq:       l.lastSeq + 1,
		Role:      contractx.RoleUser,
		Content:   in.UserText,
		CreatedAt: at,
	}

	if s.faultAfterUser != nil {
		if err := s.faultAfterUser(in); err != nil {
			return contractx.Turn{}, fmt.Errorf("%w: %w", contractx.ErrPersistenceFailure, err)
		}
	}

	assistant := user
	assistant.ID = uuid.NewString()
	assistant.Seq = l.lastSeq + 2
	assistant.Role = contractx.RoleAssistant
	assistant.Content = in.AssistantText

	l.entries = append(l.entries, user, assistant)
	l.lastSeq += 2

	return contractx.Turn{
		ID:        turnID,
		TenantID:  in.TenantID,
		UserID:    in.UserID,
		User:      user,
		Assistant: assistant,
	}, nil
}

func (s *MemoryStore) List(ctx context.Context, tenantID, userID string, q contractx.ListQuery) ([]contractx.TranscriptEntry, error) {
	if err := validateOwner(tenantID, userID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	l, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return []contractx.TranscriptEntry{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	limit := normalizeLimit(q.Limit)
	out := make([]contractx.TranscriptEntry, 0, min(limit, len(l.entries)))
	for _, e := range l.entries {
		if len(out) == limit {
			break
		}
		if e.TenantID != tenantID || e.Seq <= q.AfterSeq {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
