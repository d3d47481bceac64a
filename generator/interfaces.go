package generator

import (
	"context"

	awsm "ec2sshconfig/awsd/models"
	genm "ec2sshconfig/generator/models"
)

// UserResolver resolves the login user for an image
type UserResolver interface {
	Resolve(ctx context.Context, region, imageID string) (string, error)
}

// InstanceEnumerator lists the running instances for a set of regions
type InstanceEnumerator interface {
	List(ctx context.Context, regions []string) ([]awsm.Instance, error)
}

// Generator defines the generation run
type Generator interface {
	Run(ctx context.Context, regions []string) (*genm.Result, error)
}
