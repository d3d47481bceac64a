package generator

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	awsm "ec2sshconfig/awsd/models"
	genm "ec2sshconfig/generator/models"
)

const (
	packageName = "generator"
)

// Service runs the inventory to SSH config pipeline
type Service struct {
	enumerator  InstanceEnumerator
	users       UserResolver
	logger      *zap.Logger
	timeout     time.Duration
	concurrency int
}

var _ Generator = (*Service)(nil)

// NewService creates a new Service. A zero timeout disables the run deadline
// and a concurrency below one resolves images one at a time.
func NewService(enumerator InstanceEnumerator, users UserResolver, logger *zap.Logger, timeout time.Duration, concurrency int) *Service {
	if logger == nil {
		logger = zap.L()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		enumerator:  enumerator,
		users:       users,
		logger:      logger.With(zap.String("package", packageName)),
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// Run enumerates regions, resolves each distinct image once, synthesizes host
// records in discovery order and arranges them. Any enumeration or
// resolution failure aborts the run with no result.
func (s *Service) Run(ctx context.Context, regions []string) (*genm.Result, error) {
	logger := s.logger.With(zap.String("function", "Run"))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.Info("Generation started",
		zap.String("operation", "generation_start"),
		zap.Strings("regions", regions),
	)

	instances, err := s.enumerator.List(ctx, regions)
	if err != nil {
		return nil, err
	}

	if err := s.resolveImages(ctx, instances); err != nil {
		return nil, err
	}

	records := make([]genm.HostRecord, 0, len(instances))
	dropped := 0
	for _, inst := range instances {
		record, err := Synthesize(ctx, inst, s.users)
		if err != nil {
			return nil, err
		}
		if record == nil {
			dropped++
			logger.Debug("Incomplete host record dropped",
				zap.String("operation", "host_synthesis"),
				zap.String("instance_id", inst.InstanceID),
				zap.String("region", inst.Region),
			)
			continue
		}
		records = append(records, *record)
	}

	groups := Arrange(records)
	result := &genm.Result{
		Groups:  groups,
		Summary: Summarize(groups),
		Dropped: dropped,
	}

	logger.Info("Generation completed",
		zap.String("operation", "generation_complete"),
		zap.Int("instance_count", len(instances)),
		zap.Int("host_count", result.Summary.Total),
		zap.Int("group_count", len(groups)),
		zap.Int("dropped_count", dropped),
	)
	return result, nil
}

// resolveImages warms the user cache with one lookup per distinct image id,
// using the region of the first instance that references it.
func (s *Service) resolveImages(ctx context.Context, instances []awsm.Instance) error {
	distinct := lo.UniqBy(instances, func(inst awsm.Instance) string {
		return inst.ImageID
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, inst := range distinct {
		inst := inst
		g.Go(func() error {
			_, err := s.users.Resolve(gctx, inst.Region, inst.ImageID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Debug("Image users resolved",
		zap.String("function", "resolveImages"),
		zap.String("operation", "image_resolution"),
		zap.Int("image_count", len(distinct)),
	)
	return nil
}
