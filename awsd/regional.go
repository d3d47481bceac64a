package awsd

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ec2sshconfig/awsd/models"
	"ec2sshconfig/configuration"
)

// ClientFactory builds the client for a single region
type ClientFactory func(ctx context.Context, region string) (*AwsClient, error)

// RegionalClients hands out one lazily built AwsClient per region and routes
// instance and image calls to it. AMI ids are regional, so image lookups must
// go to the region the instance was found in.
type RegionalClients struct {
	factory ClientFactory

	mu      sync.Mutex
	clients map[string]*AwsClient
}

// NewRegionalClients returns clients backed by the AWS SDK using cfg
func NewRegionalClients(cfg *configuration.Config) *RegionalClients {
	return NewRegionalClientsWithFactory(func(ctx context.Context, region string) (*AwsClient, error) {
		return NewAWSClient(ctx, cfg, region)
	})
}

// NewRegionalClientsWithFactory returns clients built by factory
func NewRegionalClientsWithFactory(factory ClientFactory) *RegionalClients {
	return &RegionalClients{
		factory: factory,
		clients: make(map[string]*AwsClient),
	}
}

func (r *RegionalClients) clientFor(ctx context.Context, region string) (*AwsClient, error) {
	r.mu.Lock()
	c, ok := r.clients[region]
	r.mu.Unlock()
	if ok {
		return c, nil
	}

	// loading AWS config can be slow, so regions build their clients in parallel
	built, err := r.factory(ctx, region)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[region]; ok {
		return c, nil
	}
	r.clients[region] = built

	zap.L().Debug("AWS client created",
		zap.String("package", packageName),
		zap.String("function", "clientFor"),
		zap.String("operation", "aws_client_creation"),
		zap.String("region", region),
	)
	return built, nil
}

// ListInstances lists running instances in region
func (r *RegionalClients) ListInstances(ctx context.Context, region string) ([]models.Instance, error) {
	c, err := r.clientFor(ctx, region)
	if err != nil {
		return nil, err
	}
	return c.ListInstances(ctx)
}

// DescribeImage fetches one image from region
func (r *RegionalClients) DescribeImage(ctx context.Context, region, imageID string) (*models.Image, error) {
	c, err := r.clientFor(ctx, region)
	if err != nil {
		return nil, err
	}
	return c.DescribeImage(ctx, imageID)
}
