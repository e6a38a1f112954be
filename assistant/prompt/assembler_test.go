package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestAssembler(t *testing.T, cfg Config) *Assembler {
	t.Helper()
	a, err := NewAssembler(cfg)
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}
	return a
}

func sampleSnapshot() contractx.Snapshot {
	return contractx.Snapshot{
		Profile: &contractx.Profile{
			TenantID:     "t1",
			BusinessName: "Acme Hardware",
			OwnerName:    "Rosa Diaz",
			Phone:        "555-0100",
			Location:     "12 Main St",
		},
		Products: []contractx.ProductFact{
			{ID: "p1", Name: "Hammer", Quantity: 4, UnitPrice: 12.5, Currency: "USD", AddedAt: day0},
			{ID: "p2", Name: "Nails", Quantity: 900, UnitPrice: 0.05, Currency: "USD", AddedAt: day0.AddDate(0, 0, 1)},
		},
	}
}

func TestAssembleScenarioProfileAndProducts(t *testing.T) {
	t.Parallel()

	a := newTestAssembler(t, Config{})
	ic := a.Assemble(sampleSnapshot(), "What do you sell?")

	persona := LoadPersona(DefaultAssistantName)
	wantLen := len(persona) + 2 + 2 + 1
	if len(ic.Entries) != wantLen {
		t.Fatalf("len(Entries) = %d, want %d", len(ic.Entries), wantLen)
	}

	for i, line := range persona {
		if ic.Entries[i].Role != contractx.RoleSystem || ic.Entries[i].Content != line {
			t.Fatalf("entry %d = %#v, want persona %q", i, ic.Entries[i], line)
		}
	}

	p := len(persona)
	if !strings.Contains(ic.Entries[p].Content, "Acme Hardware") || !strings.Contains(ic.Entries[p].Content, "Rosa Diaz") {
		t.Fatalf("profile entry = %q", ic.Entries[p].Content)
	}
	if !strings.Contains(ic.Entries[p+1].Content, "12 Main St") {
		t.Fatalf("location entry = %q", ic.Entries[p+1].Content)
	}
	wantProduct := "The product Hammer has 4 units in stock, costs 12.5 USD and was added on 2025-01-01 at Acme Hardware."
	if ic.Entries[p+2].Content != wantProduct {
		t.Fatalf("product entry = %q, want %q", ic.Entries[p+2].Content, wantProduct)
	}
	if !strings.Contains(ic.Entries[p+3].Content, "Nails") || !strings.Contains(ic.Entries[p+3].Content, "0.05 USD") {
		t.Fatalf("second product entry = %q", ic.Entries[p+3].Content)
	}

	last := ic.Entries[len(ic.Entries)-1]
	if last.Role != contractx.RoleUser || last.Content != "What do you sell?" {
		t.Fatalf("last entry = %#v", last)
	}
	if ic.Truncation.Dropped() != 0 {
		t.Fatalf("unexpected truncation: %#v", ic.Truncation)
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	t.Parallel()

	snap := sampleSnapshot()
	snap.Clients = []contractx.ClientFact{{ID: "c1", Name: "Luis", Address: "Av 1", Document: "V 123", Phone: "555-1", PaymentMethod: "cash", CreatedAt: day0}}
	snap.Sales = []contractx.SaleFact{{ReportID: "r1", ItemID: "i1", ClientName: "Luis", SoldAt: day0, ProductName: "Hammer", Quantity: 1, Total: 12.5, Currency: "USD"}}

	a := newTestAssembler(t, Config{MaxEntries: 8, Policy: string(PolicyLeastRelevantFirst)})

	first, err := json.Marshal(a.Assemble(snap, "Who bought a hammer?"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(a.Assemble(snap, "Who bought a hammer?"))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("run %d differs:\n%s\n%s", i, again, first)
		}
	}
}

func TestAssembleSectionOrder(t *testing.T) {
	t.Parallel()

	snap := sampleSnapshot()
	snap.Clients = []contractx.ClientFact{{Name: "Luis"}}
	snap.Sales = []contractx.SaleFact{{ClientName: "Luis", ProductName: "Hammer", Quantity: 1, Total: 12.5, Currency: "USD"}}

	ic := newTestAssembler(t, Config{}).Assemble(snap, "hi")
	n := len(ic.Entries)
	if !strings.HasPrefix(ic.Entries[n-3].Content, "The client Luis is located") {
		t.Fatalf("client entry = %q", ic.Entries[n-3].Content)
	}
	if !strings.HasPrefix(ic.Entries[n-2].Content, "The client Luis bought 1 units of the product Hammer on an unknown date") {
		t.Fatalf("sale entry = %q", ic.Entries[n-2].Content)
	}
	if !strings.Contains(ic.Entries[n-3].Content, "phone number not on record") {
		t.Fatalf("missing fields must render as not on record: %q", ic.Entries[n-3].Content)
	}
}

func TestAssembleUserEntryAlwaysLast(t *testing.T) {
	t.Parallel()

	a := newTestAssembler(t, Config{})
	for _, n := range []int{0, 1, 5, 50} {
		snap := sampleSnapshot()
		snap.Products = nil
		for i := 0; i < n; i++ {
			snap.Sales = append(snap.Sales, contractx.SaleFact{ClientName: fmt.Sprintf("c%d", i), SoldAt: day0})
		}
		ic := a.Assemble(snap, "question")
		msg, ok := ic.UserMessage()
		if !ok || msg.Content != "question" {
			t.Fatalf("n=%d: last entry is not the user message: %#v", n, ic.Entries[len(ic.Entries)-1])
		}
		for _, e := range ic.Entries[:len(ic.Entries)-1] {
			if e.Role != contractx.RoleSystem {
				t.Fatalf("n=%d: non-system entry before the user entry: %#v", n, e)
			}
		}
	}
}

func TestAssembleTruncatesOldestFirstByEntries(t *testing.T) {
	t.Parallel()

	snap := sampleSnapshot()
	snap.Products = []contractx.ProductFact{
		{ID: "new", Name: "Newest", AddedAt: day0.AddDate(0, 0, 10)},
		{ID: "old", Name: "Oldest", AddedAt: day0},
	}
	snap.Sales = []contractx.SaleFact{
		{ClientName: "Mid", ProductName: "Thing", SoldAt: day0.AddDate(0, 0, 5)},
	}

	persona := LoadPersona(DefaultAssistantName)
	// persona + 2 profile + 1 fact + user
	limit := len(persona) + 2 + 1 + 1
	ic := newTestAssembler(t, Config{MaxEntries: limit}).Assemble(snap, "hello")

	if len(ic.Entries) != limit {
		t.Fatalf("len(Entries) = %d, want %d", len(ic.Entries), limit)
	}
	kept := ic.Entries[len(persona)+2]
	if !strings.Contains(kept.Content, "Newest") {
		t.Fatalf("kept fact = %q, want the newest product", kept.Content)
	}
	if ic.Truncation.Products != 1 || ic.Truncation.Sales != 1 || ic.Truncation.Clients != 0 {
		t.Fatalf("Truncation = %#v", ic.Truncation)
	}
	for i, line := range persona {
		if ic.Entries[i].Content != line {
			t.Fatalf("persona entry %d dropped or reordered", i)
		}
	}
	if msg, ok := ic.UserMessage(); !ok || msg.Content != "hello" {
		t.Fatal("user entry dropped")
	}
}

func TestAssembleTruncatesByTokens(t *testing.T) {
	t.Parallel()

	snap := sampleSnapshot()
	snap.Products = nil
	for i := 0; i < 40; i++ {
		snap.Sales = append(snap.Sales, contractx.SaleFact{
			ClientName:  fmt.Sprintf("client-%02d", i),
			ProductName: "Widget",
			Quantity:    1,
			Total:       10,
			Currency:    "USD",
			SoldAt:      day0.AddDate(0, 0, i),
		})
	}

	a := newTestAssembler(t, Config{MaxTokens: 400})
	ic := a.Assemble(snap, "How many widgets did we sell?")

	total := 0
	for _, e := range ic.Entries {
		total += EstimateTokens(e)
	}
	if total > 400 {
		t.Fatalf("estimated tokens = %d, want <= 400", total)
	}
	if ic.Truncation.Sales == 0 {
		t.Fatal("expected sales to be truncated")
	}

	// the surviving sales must be the most recent ones, still in chronological order
	var kept []string
	for _, e := range ic.Entries {
		if strings.HasPrefix(e.Content, "The client client-") {
			kept = append(kept, e.Content[len("The client "):len("The client client-00")])
		}
	}
	if len(kept) == 0 {
		t.Fatal("expected some sales to survive")
	}
	if kept[len(kept)-1] != "client-39" {
		t.Fatalf("newest sale dropped, kept = %v", kept)
	}
	if len(kept)+ic.Truncation.Sales != 40 {
		t.Fatalf("kept %d + dropped %d != 40", len(kept), ic.Truncation.Sales)
	}
	for i := 1; i < len(kept); i++ {
		if kept[i-1] >= kept[i] {
			t.Fatalf("kept sales out of order: %v", kept)
		}
	}
}

func TestAssembleLeastRelevantFirst(t *testing.T) {
	t.Parallel()

	snap := sampleSnapshot()
	snap.Products = []contractx.ProductFact{
		{Name: "Screwdriver", AddedAt: day0},
		{Name: "Hammer", AddedAt: day0},
		{Name: "Paint", AddedAt: day0.AddDate(0, 0, 3)},
	}

	persona := LoadPersona(DefaultAssistantName)
	limit := len(persona) + 2 + 1 + 1
	ic := newTestAssembler(t, Config{MaxEntries: limit, Policy: "least_relevant_first"}).
		Assemble(snap, "Do you have a screwdriver?")

	kept := ic.Entries[len(persona)+2].Content
	if !strings.Contains(kept, "Screwdriver") {
		t.Fatalf("kept fact = %q, want the screwdriver", kept)
	}
}

func TestAssembleBudgetSmallerThanProtectedEntries(t *testing.T) {
	t.Parallel()

	ic := newTestAssembler(t, Config{MaxEntries: 1}).Assemble(sampleSnapshot(), "hi")

	persona := LoadPersona(DefaultAssistantName)
	if len(ic.Entries) != len(persona)+2+1 {
		t.Fatalf("len(Entries) = %d, want only protected entries", len(ic.Entries))
	}
	if ic.Truncation.Products != 2 {
		t.Fatalf("Truncation = %#v, want both products dropped", ic.Truncation)
	}
}

func TestAssembleWithoutProfile(t *testing.T) {
	t.Parallel()

	snap := sampleSnapshot()
	snap.Profile = nil
	ic := newTestAssembler(t, Config{AssistantName: "Vera"}).Assemble(snap, "hi")

	persona := LoadPersona("Vera")
	if !strings.Contains(ic.Entries[0].Content, "Vera") {
		t.Fatalf("assistant name not substituted: %q", ic.Entries[0].Content)
	}
	if !strings.HasSuffix(ic.Entries[len(persona)].Content, "at the business.") {
		t.Fatalf("product entry = %q", ic.Entries[len(persona)].Content)
	}
}

func TestNewAssemblerRejectsUnknownPolicy(t *testing.T) {
	t.Parallel()

	_, err := NewAssembler(Config{Policy: "random"})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("NewAssembler() error = %v, want ErrValidation", err)
	}
}

func TestLoadPersonaHasNoQuotesRule(t *testing.T) {
	t.Parallel()

	found := false
	for _, line := range LoadPersona("X") {
		if strings.Contains(line, "quotation marks") {
			found = true
		}
		if strings.Contains(line, assistantPlaceholder) {
			t.Fatalf("placeholder left in persona line %q", line)
		}
	}
	if !found {
		t.Fatal("persona must forbid quotation marks")
	}
}
