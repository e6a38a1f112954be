package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

// BunGateway reads tenant facts from the relational store. Tenant ids are only
// ever passed as bound parameters.
type BunGateway struct {
	db bun.IDB
}

var _ contractx.TenantGateway = (*BunGateway)(nil)

func NewBunGateway(db bun.IDB) (*BunGateway, error) {
	if db == nil {
		return nil, errors.New("tenant gateway: db is required")
	}
	return &BunGateway{db: db}, nil
}

func (g *BunGateway) Profile(ctx context.Context, tenantID string) (contractx.Profile, error) {
	if err := validateTenantID(tenantID); err != nil {
		return contractx.Profile{}, err
	}

	var row CompanyRow
	err := g.db.NewSelect().
		Model(&row).
		Where("c.id_company = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Profile{}, fmt.Errorf("%w: tenant_id=%s", contractx.ErrNotFound, tenantID)
	}
	if err != nil {
		return contractx.Profile{}, unavailable("profile", err)
	}

	return contractx.Profile{
		TenantID:     row.ID,
		BusinessName: row.CompanyName,
		OwnerName:    row.OwnerName,
		Phone:        row.Phone,
		Location:     row.Address,
	}, nil
}

func (g *BunGateway) Products(ctx context.Context, tenantID string) ([]contractx.ProductFact, error) {
	if err := validateTenantID(tenantID); err != nil {
		return nil, err
	}

	var rows []ProductRow
	err := g.db.NewSelect().
		Model(&rows).
		Where("p.company_id = ?", tenantID).
		OrderExpr("p.created_at ASC, p.id_product ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable("products", err)
	}

	out := make([]contractx.ProductFact, 0, len(rows))
	for _, r := range rows {
		out = append(out, contractx.ProductFact{
			ID:        r.ID,
			Name:      r.Name,
			Quantity:  r.Stock,
			UnitPrice: r.Price,
			Currency:  r.Currency,
			AddedAt:   r.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (g *BunGateway) Clients(ctx context.Context, tenantID string) ([]contractx.ClientFact, error) {
	if err := validateTenantID(tenantID); err != nil {
		return nil, err
	}

	var rows []ClientRow
	err := g.db.NewSelect().
		Model(&rows).
		Where("cl.company_id = ?", tenantID).
		OrderExpr("cl.created_at ASC, cl.id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable("clients", err)
	}

	out := make([]contractx.ClientFact, 0, len(rows))
	for _, r := range rows {
		out = append(out, contractx.ClientFact{
			ID:            r.ID,
			Name:          r.Name,
			Address:       r.Address,
			Document:      strings.TrimSpace(r.DocumentType + " " + r.DocumentNumber),
			Phone:         r.Phone,
			PaymentMethod: r.PaymentMethod,
			CreatedAt:     r.CreatedAt.UTC(),
		})
	}
	return out, nil
}

type saleRow struct {
	ReportID    string    `bun:"report_id"`
	ItemID      string    `bun:"item_id"`
	ClientName  string    `bun:"client_name"`
	SoldAt      time.Time `bun:"sold_at"`
	ProductName string    `bun:"product_name"`
	Quantity    int64     `bun:"quantity"`
	Total       float64   `bun:"total"`
	Currency    string    `bun:"currency"`
}

func (g *BunGateway) Sales(ctx context.Context, tenantID string) ([]contractx.SaleFact, error) {
	if err := validateTenantID(tenantID); err != nil {
		return nil, err
	}

	var rows []saleRow
	err := g.db.NewSelect().
		TableExpr("sale_reports AS r").
		Join("JOIN sale_items AS i ON i.report_id = r.id").
		ColumnExpr("r.id AS report_id").
		ColumnExpr("i.id AS item_id").
		ColumnExpr("r.client_name, r.sold_at").
		ColumnExpr("i.product_name, i.quantity, i.total, i.currency").
		Where("r.company_id = ?", tenantID).
		OrderExpr("r.created_at ASC, r.id ASC, i.line_no ASC, i.id ASC").
		Scan(ctx, &rows)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable("sales", err)
	}

	out := make([]contractx.SaleFact, 0, len(rows))
	for _, r := range rows {
		out = append(out, contractx.SaleFact{
			ReportID:    r.ReportID,
			ItemID:      r.ItemID,
			ClientName:  r.ClientName,
			SoldAt:      r.SoldAt.UTC(),
			ProductName: r.ProductName,
			Quantity:    r.Quantity,
			Total:       r.Total,
			Currency:    r.Currency,
		})
	}
	return out, nil
}

func validateTenantID(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant id is empty", contractx.ErrValidation)
	}
	return nil
}

// unavailable marks a failed read as a gateway failure. A caller that went
// away is not one.
func unavailable(collection string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("read %s: %w", collection, err)
	}
	return fmt.Errorf("%w: read %s: %w", contractx.ErrGatewayUnavailable, collection, err)
}
