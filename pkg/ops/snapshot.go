package ops

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opensyte/automation/pkg/models"
)

// ComputeOperationsSnapshot derives the internal health aggregate for one
// organization. The five counts are independent reads and run in parallel.
func (o *Operations) ComputeOperationsSnapshot(ctx context.Context, organizationID string) (*models.OperationsSnapshot, error) {
	now := time.Now().UTC()
	snapshot := &models.OperationsSnapshot{GeneratedAt: now}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, err := o.store.Projects().CountActive(ctx, organizationID)
		snapshot.ActiveProjects = count

		return err
	})

	g.Go(func() error {
		count, err := o.store.Projects().CountAtRisk(ctx, organizationID, now)
		snapshot.AtRiskProjects = count

		return err
	})

	g.Go(func() error {
		count, err := o.store.Invoices().CountOverdue(ctx, organizationID, now)
		snapshot.OverdueInvoices = count

		return err
	})

	g.Go(func() error {
		count, err := o.store.Customers().CountActiveClients(ctx, organizationID)
		snapshot.ActiveClients = count

		return err
	})

	g.Go(func() error {
		count, err := o.store.Tasks().CountOverdue(ctx, organizationID, now)
		snapshot.OverdueTasks = count

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snapshot, nil
}
