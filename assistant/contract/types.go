package contract

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Profile struct {
	TenantID     string `json:"tenant_id"`
	BusinessName string `json:"business_name"`
	OwnerName    string `json:"owner_name"`
	Phone        string `json:"phone"`
	Location     string `json:"location"`
}

type ProductFact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Currency  string    `json:"currency"`
	AddedAt   time.Time `json:"added_at"`
}

type ClientFact struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	Document      string    `json:"document"`
	Phone         string    `json:"phone"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

// SaleFact is one (sale report, line item) pair.
type SaleFact struct {
	ReportID    string    `json:"report_id"`
	ItemID      string    `json:"item_id"`
	ClientName  string    `json:"client_name"`
	SoldAt      time.Time `json:"sold_at"`
	ProductName string    `json:"product_name"`
	Quantity    int64     `json:"quantity"`
	Total       float64   `json:"total"`
	Currency    string    `json:"currency"`
}

// Snapshot is the read-only view of a tenant taken for a single turn.
type Snapshot struct {
	Profile  *Profile      `json:"profile,omitempty"`
	Products []ProductFact `json:"products,omitempty"`
	Clients  []ClientFact  `json:"clients,omitempty"`
	Sales    []SaleFact    `json:"sales,omitempty"`
}

type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type TruncationReport struct {
	Products int `json:"products,omitempty"`
	Clients  int `json:"clients,omitempty"`
	Sales    int `json:"sales,omitempty"`
}

func (r TruncationReport) Dropped() int {
	return r.Products + r.Clients + r.Sales
}

// InstructionContext is the ordered input of one completion call: system facts
// followed by exactly one user entry. It is rebuilt for every turn.
type InstructionContext struct {
	Entries    []Entry          `json:"entries"`
	Truncation TruncationReport `json:"truncation"`
}

// UserMessage returns the trailing user entry.
func (ic InstructionContext) UserMessage() (Entry, bool) {
	if len(ic.Entries) == 0 {
		return Entry{}, false
	}
	last := ic.Entries[len(ic.Entries)-1]
	if last.Role != RoleUser {
		return Entry{}, false
	}
	return last, true
}

type TranscriptEntry struct {
	ID        string    `json:"id"`
	TurnID    string    `json:"turn_id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Seq       int64     `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnInput is what the transcript store needs to record one turn.
type TurnInput struct {
	TenantID      string    `json:"tenant_id"`
	UserID        string    `json:"user_id"`
	UserText      string    `json:"user_text"`
	AssistantText string    `json:"assistant_text"`
	At            time.Time `json:"at"`
}

// Turn is a persisted (user, assistant) pair; Assistant.Seq == User.Seq+1.
type Turn struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	UserID    string          `json:"user_id"`
	User      TranscriptEntry `json:"user"`
	Assistant TranscriptEntry `json:"assistant"`
}

type ListQuery struct {
	AfterSeq int64
	Limit    int
}
