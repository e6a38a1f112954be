package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

// advanceCounterSQL reserves two sequence numbers for one user. The row lock
// taken by the upsert serialises concurrent turns of the same user until the
// transaction ends.
const advanceCounterSQL = `INSERT INTO transcript_counters (user_id, last_seq) VALUES (?, 2)
ON CONFLICT (user_id) DO UPDATE SET last_seq = transcript_counters.last_seq + 2
RETURNING last_seq`

// BunStore persists transcripts in the relational store. Both entries of a
// turn and the counter bump commit in one transaction.
type BunStore struct {
	db  *bun.DB
	now func() time.Time

	// beforeAssistant runs between the two inserts. Tests use it to inject faults.
	beforeAssistant func(ctx context.Context) error
}

var _ contractx.TranscriptStore = (*BunStore)(nil)

func NewBunStore(db *bun.DB) (*BunStore, error) {
	if db == nil {
		return nil, errors.New("transcript store: db is required")
	}
	return &BunStore{db: db, now: time.Now}, nil
}

func (s *BunStore) AppendTurn(ctx context.Context, in contractx.TurnInput) (contractx.Turn, error) {
	if err := validateInput(in); err != nil {
		return contractx.Turn{}, err
	}

	at := in.At
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()
	turnID := uuid.NewString()

	var turn contractx.Turn
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var last int64
		if err := tx.NewRaw(advanceCounterSQL, in.UserID).Scan(ctx, &last); err != nil {
			return fmt.Errorf("advance counter: %w", err)
		}

		user := EntryRow{
			ID:        uuid.NewString(),
			TurnID:    turnID,
			TenantID:  in.TenantID,
			UserID:    in.UserID,
			Seq:       last - 1,
			Content:   in.UserText,
			CreatedAt: at,
		}
		if _, err := tx.NewInsert().Model(&user).Exec(ctx); err != nil {
			return fmt.Errorf("insert user entry: %w", err)
		}

		if s.beforeAssistant != nil {
			if err := s.beforeAssistant(ctx); err != nil {
				return err
			}
		}

		assistant := EntryRow{
			ID:          uuid.NewString(),
			TurnID:      turnID,
			TenantID:    in.TenantID,
			UserID:      in.UserID,
			Seq:         last,
			IsAssistant: true,
			Content:     in.AssistantText,
			CreatedAt:   at,
		}
		if _, err := tx.NewInsert().Model(&assistant).Exec(ctx); err != nil {
			return fmt.Errorf("insert assistant entry: %w", err)
		}

		turn = contractx.Turn{
			ID:        turnID,
			TenantID:  in.TenantID,
			UserID:    in.UserID,
			User:      user.toEntry(),
			Assistant: assistant.toEntry(),
		}
		return nil
	})
	if err != nil {
		return contractx.Turn{}, fmt.Errorf("%w: %w", contractx.ErrPersistenceFailure, err)
	}
	return turn, nil
}

// List returns entries in sequence order, starting after q.AfterSeq.
func (s *BunStore) List(ctx context.Context, tenantID, userID string, q contractx.ListQuery) ([]contractx.TranscriptEntry, error) {
	if err := validateOwner(tenantID, userID); err != nil {
		return nil, err
	}

	var rows []EntryRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("te.tenant_id = ?", tenantID).
		Where("te.user_id = ?", userID).
		Where("te.seq > ?", q.AfterSeq).
		OrderExpr("te.seq ASC").
		Limit(normalizeLimit(q.Limit)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list transcript: %w", contractx.ErrPersistenceFailure, err)
	}

	out := make([]contractx.TranscriptEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntry())
	}
	return out, nil
}
