package resolver

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ec2sshconfig/awsd/models"
)

// MockImageDescriber is a mock implementation of ImageDescriber
type MockImageDescriber struct {
	mock.Mock
}

// DescribeImage mocks the DescribeImage method
func (m *MockImageDescriber) DescribeImage(ctx context.Context, region, imageID string) (*models.Image, error) {
	args := m.Called(ctx, region, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}
