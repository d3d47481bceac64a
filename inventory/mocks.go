package inventory

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ec2sshconfig/awsd/models"
)

// MockInstanceLister is a mock implementation of InstanceLister
type MockInstanceLister struct {
	mock.Mock
}

// ListInstances mocks the ListInstances method
func (m *MockInstanceLister) ListInstances(ctx context.Context, region string) ([]models.Instance, error) {
	args := m.Called(ctx, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Instance), args.Error(1)
}
