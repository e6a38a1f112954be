package tenant

import (
	"context"
	"errors"

	"github.com/sourcegraph/conc/pool"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

// Gather takes a full snapshot of one tenant. The profile is read first; an
// unknown tenant fails with ErrNotFound and the dependent collections are never
// queried. The remaining collections are read concurrently and any failure
// fails the whole snapshot.
func Gather(ctx context.Context, gw contractx.TenantGateway, tenantID string) (contractx.Snapshot, error) {
	if gw == nil {
		return contractx.Snapshot{}, errors.New("tenant gateway is nil")
	}

	profile, err := gw.Profile(ctx, tenantID)
	if err != nil {
		return contractx.Snapshot{}, err
	}

	var (
		products []contractx.ProductFact
		clients  []contractx.ClientFact
		sales    []contractx.SaleFact
	)

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		products, err = gw.Products(ctx, tenantID)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		clients, err = gw.Clients(ctx, tenantID)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		sales, err = gw.Sales(ctx, tenantID)
		return err
	})
	if err := p.Wait(); err != nil {
		return contractx.Snapshot{}, err
	}

	return contractx.Snapshot{
		Profile:  &profile,
		Products: products,
		Clients:  clients,
		Sales:    sales,
	}, nil
}
