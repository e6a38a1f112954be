package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	databasex "github.com/tanpawarit/tenant-assistant/pkg/database"
)

// The rows below map the tables owned by the CRUD surface. This package only
// reads them; EnsureSchema exists for local setups and tests.

type CompanyRow struct {
	bun.BaseModel `bun:"table:companies,alias:c"`

	ID          string    `bun:"id_company,pk"`
	CompanyName string    `bun:"company_name,notnull"`
	OwnerName   string    `bun:"name,notnull"`
	Phone       string    `bun:"phone"`
	Address     string    `bun:"address"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

type ProductRow struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID        string    `bun:"id_product,pk"`
	CompanyID string    `bun:"company_id,notnull"`
	Name      string    `bun:"name,notnull"`
	Stock     int64     `bun:"stock,notnull"`
	Price     float64   `bun:"price,notnull"`
	Currency  string    `bun:"currency,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type ClientRow struct {
	bun.BaseModel `bun:"table:clients,alias:cl"`

	ID             string    `bun:"id,pk"`
	CompanyID      string    `bun:"company_id,notnull"`
	Name           string    `bun:"name,notnull"`
	Address        string    `bun:"address"`
	DocumentType   string    `bun:"document_type"`
	DocumentNumber string    `bun:"document_number"`
	Phone          string    `bun:"phone"`
	PaymentMethod  string    `bun:"payment_method"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

type SaleReportRow struct {
	bun.BaseModel `bun:"table:sale_reports,alias:r"`

	ID         string    `bun:"id,pk"`
	CompanyID  string    `bun:"company_id,notnull"`
	ClientName string    `bun:"client_name,notnull"`
	SoldAt     time.Time `bun:"sold_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

type SaleItemRow struct {
	bun.BaseModel `bun:"table:sale_items,alias:i"`

	ID          string  `bun:"id,pk"`
	ReportID    string  `bun:"report_id,notnull"`
	LineNo      int     `bun:"line_no,notnull"`
	ProductName string  `bun:"product_name,notnull"`
	Quantity    int64   `bun:"quantity,notnull"`
	Total       float64 `bun:"total,notnull"`
	Currency    string  `bun:"currency,notnull"`
}

func Models() []any {
	return []any{
		(*CompanyRow)(nil),
		(*ProductRow)(nil),
		(*ClientRow)(nil),
		(*SaleReportRow)(nil),
		(*SaleItemRow)(nil),
	}
}

func EnsureSchema(ctx context.Context, db bun.IDB) error {
	if err := databasex.CreateTables(ctx, db, Models()...); err != nil {
		return err
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*ProductRow)(nil), "products_company_id_idx", "company_id"},
		{(*ClientRow)(nil), "clients_company_id_idx", "company_id"},
		{(*SaleReportRow)(nil), "sale_reports_company_id_idx", "company_id"},
		{(*SaleItemRow)(nil), "sale_items_report_id_idx", "report_id"},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
