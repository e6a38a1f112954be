package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
	databasex "github.com/tanpawarit/tenant-assistant/pkg/database"
)

type EntryRow struct {
	bun.BaseModel `bun:"table:transcript_entries,alias:te"`

	ID          string    `bun:"id,pk"`
	TurnID      string    `bun:"turn_id,notnull"`
	TenantID    string    `bun:"tenant_id,notnull"`
	UserID      string    `bun:"user_id,notnull"`
	Seq         int64     `bun:"seq,notnull"`
	IsAssistant bool      `bun:"is_assistant,notnull"`
	Content     string    `bun:"content,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

// counterRow holds the last sequence number handed out per user.
type counterRow struct {
	bun.BaseModel `bun:"table:transcript_counters,alias:tc"`

	UserID  string `bun:"user_id,pk"`
	LastSeq int64  `bun:"last_seq,notnull"`
}

func (r EntryRow) toEntry() contractx.TranscriptEntry {
	role := contractx.RoleUser
	if r.IsAssistant {
		role = contractx.RoleAssistant
	}
	return contractx.TranscriptEntry{
		ID:        r.ID,
		TurnID:    r.TurnID,
		TenantID:  r.TenantID,
		UserID:    r.UserID,
		Seq:       r.Seq,
		Role:      role,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
	}
}

func Models() []any {
	return []any{
		(*EntryRow)(nil),
		(*counterRow)(nil),
	}
}

func EnsureSchema(ctx context.Context, db bun.IDB) error {
	if err := databasex.CreateTables(ctx, db, Models()...); err != nil {
		return err
	}
	if _, err := db.NewCreateIndex().
		Model((*EntryRow)(nil)).
		Index("transcript_entries_user_seq_uidx").
		Unique().
		Column("user_id", "seq").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create index transcript_entries_user_seq_uidx: %w", err)
	}
	return nil
}
