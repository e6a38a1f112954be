package contract

import "context"

// TenantGateway reads tenant-scoped facts. Implementations must bind the tenant id
// as a query parameter.
type TenantGateway interface {
	Profile(ctx context.Context, tenantID string) (Profile, error)
	Products(ctx context.Context, tenantID string) ([]ProductFact, error)
	Clients(ctx context.Context, tenantID string) ([]ClientFact, error)
	Sales(ctx context.Context, tenantID string) ([]SaleFact, error)
}

type Completer interface {
	Complete(ctx context.Context, ic InstructionContext) (string, error)
}

// TranscriptStore is an append-only log of turns. There is no update or delete.
type TranscriptStore interface {
	AppendTurn(ctx context.Context, in TurnInput) (Turn, error)
	List(ctx context.Context, tenantID, userID string, q ListQuery) ([]TranscriptEntry, error)
}
