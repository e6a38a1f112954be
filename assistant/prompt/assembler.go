package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

const (
	DefaultAssistantName = "Dante"

	dateLayout = "2006-01-02"
)

type Config struct {
	AssistantName string `split_words:"true" default:"Dante"`
	// MaxEntries and MaxTokens bound the whole context. Zero disables a limit.
	MaxEntries int    `split_words:"true" default:"200"`
	MaxTokens  int    `split_words:"true" default:"3000"`
	Policy     string `split_words:"true" default:"oldest_first"`
}

// Assembler turns a tenant snapshot and a user message into an instruction
// context. It holds no mutable state and is safe for concurrent use.
type Assembler struct {
	assistant string
	persona   []string
	budget    Budget
	policy    TruncationPolicy
}

func NewAssembler(cfg Config) (*Assembler, error) {
	policy, err := ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	if cfg.MaxEntries < 0 || cfg.MaxTokens < 0 {
		return nil, fmt.Errorf("%w: context budget must be >= 0", contractx.ErrValidation)
	}

	name := strings.TrimSpace(cfg.AssistantName)
	if name == "" {
		name = DefaultAssistantName
	}

	return &Assembler{
		assistant: name,
		persona:   LoadPersona(name),
		budget:    Budget{MaxEntries: cfg.MaxEntries, MaxTokens: cfg.MaxTokens},
		policy:    policy,
	}, nil
}

// Assemble never fails: when the facts do not fit the budget, fact entries are
// dropped according to the truncation policy and reported in the result.
func (a *Assembler) Assemble(snap contractx.Snapshot, message string) contractx.InstructionContext {
	business := "the business"
	if snap.Profile != nil && strings.TrimSpace(snap.Profile.BusinessName) != "" {
		business = strings.TrimSpace(snap.Profile.BusinessName)
	}

	head := make([]contractx.Entry, 0, len(a.persona)+2)
	for _, line := range a.persona {
		head = append(head, system(line))
	}
	if snap.Profile != nil {
		head = append(head, a.profileEntries(*snap.Profile, business)...)
	}

	facts := make([]fact, 0, len(snap.Products)+len(snap.Clients)+len(snap.Sales))
	for i, p := range snap.Products {
		facts = append(facts, fact{
			section:  sectionProduct,
			index:    i,
			at:       p.AddedAt,
			entry:    system(productEntry(p, business)),
			keywords: p.Name + " " + p.Currency,
		})
	}
	for i, c := range snap.Clients {
		facts = append(facts, fact{
			section:  sectionClient,
			index:    i,
			at:       c.CreatedAt,
			entry:    system(clientEntry(c, business)),
			keywords: strings.Join([]string{c.Name, c.Address, c.PaymentMethod}, " "),
		})
	}
	for i, s := range snap.Sales {
		facts = append(facts, fact{
			section:  sectionSale,
			index:    i,
			at:       s.SoldAt,
			entry:    system(saleEntry(s, business)),
			keywords: strings.Join([]string{s.ClientName, s.ProductName, s.Currency}, " "),
		})
	}

	user := contractx.Entry{Role: contractx.RoleUser, Content: message}

	kept, report := a.budget.fit(head, facts, user, a.policy)

	entries := make([]contractx.Entry, 0, len(head)+len(kept)+1)
	entries = append(entries, head...)
	for _, f := range kept {
		entries = append(entries, f.entry)
	}
	entries = append(entries, user)

	return contractx.InstructionContext{
		Entries:    entries,
		Truncation: report,
	}
}

func (a *Assembler) profileEntries(p contractx.Profile, business string) []contractx.Entry {
	return []contractx.Entry{
		system(fmt.Sprintf(
			"You are %s, an artificial intelligence working for %s. Its owner is %s and the business phone is %s.",
			a.assistant, business, orUnknown(p.OwnerName), orUnknown(p.Phone),
		)),
		system(fmt.Sprintf("The business is located at %s.", orUnknown(p.Location))),
	}
}

func productEntry(p contractx.ProductFact, business string) string {
	return fmt.Sprintf(
		"The product %s has %s units in stock, costs %s %s and was added on %s at %s.",
		orUnknown(p.Name),
		strconv.FormatInt(p.Quantity, 10),
		formatAmount(p.UnitPrice),
		orUnknown(p.Currency),
		formatDate(p.AddedAt),
		business,
	)
}

func clientEntry(c contractx.ClientFact, business string) string {
	return fmt.Sprintf(
		"The client %s is located at %s, has document %s, phone number %s, pays with %s and belongs to %s.",
		orUnknown(c.Name),
		orUnknown(c.Address),
		orUnknown(c.Document),
		orUnknown(c.Phone),
		orUnknown(c.PaymentMethod),
		business,
	)
}

func saleEntry(s contractx.SaleFact, business string) string {
	return fmt.Sprintf(
		"The client %s bought %s units of the product %s on %s for a total of %s %s at %s.",
		orUnknown(s.ClientName),
		strconv.FormatInt(s.Quantity, 10),
		orUnknown(s.ProductName),
		formatDate(s.SoldAt),
		formatAmount(s.Total),
		orUnknown(s.Currency),
		business,
	)
}

func system(content string) contractx.Entry {
	return contractx.Entry{Role: contractx.RoleSystem, Content: content}
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "not on record"
	}
	return s
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "an unknown date"
	}
	return t.UTC().Format(dateLayout)
}
