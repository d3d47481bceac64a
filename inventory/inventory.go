package inventory

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ec2sshconfig/awsd/models"
	"ec2sshconfig/errors"
)

const (
	packageName = "inventory"
)

// InstanceLister lists running instances for a single region
type InstanceLister interface {
	ListInstances(ctx context.Context, region string) ([]models.Instance, error)
}

// Enumerator lists instances across regions concurrently. The first failing
// region cancels the rest and fails the whole enumeration; no partial
// inventory is ever returned.
type Enumerator struct {
	Lister      InstanceLister
	Concurrency int
	Logger      *zap.Logger
}

// List returns every instance from regions, ordered by region as requested
// and by provider order within a region.
func (e *Enumerator) List(ctx context.Context, regions []string) ([]models.Instance, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.With(
		zap.String("package", packageName),
		zap.String("function", "List"),
	)

	if len(regions) == 0 {
		return nil, errors.New(errors.ErrConfigInvalid, "no regions to enumerate", nil, nil)
	}

	perRegion := make([][]models.Instance, len(regions))
	g, gctx := errgroup.WithContext(ctx)
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}

	for idx, region := range regions {
		idx, region := idx, region
		g.Go(func() error {
			instances, err := e.Lister.ListInstances(gctx, region)
			if err != nil {
				return errors.NewEnumerationError(region, err)
			}
			for i := range instances {
				if instances[i].Region == "" {
					instances[i].Region = region
				}
			}
			perRegion[idx] = instances
			logger.Info("Region enumerated",
				zap.String("operation", "region_enumeration"),
				zap.String("region", region),
				zap.Int("instance_count", len(instances)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Enumeration failed",
			zap.String("operation", "region_enumeration"),
			zap.Error(err),
		)
		return nil, err
	}

	var all []models.Instance
	for _, instances := range perRegion {
		all = append(all, instances...)
	}
	return all, nil
}
