package generator

import (
	"context"

	"github.com/stretchr/testify/mock"

	awsm "ec2sshconfig/awsd/models"
)

// MockUserResolver is a mock implementation of UserResolver
type MockUserResolver struct {
	mock.Mock
}

// Resolve mocks the Resolve method
func (m *MockUserResolver) Resolve(ctx context.Context, region, imageID string) (string, error) {
	args := m.Called(ctx, region, imageID)
	return args.String(0), args.Error(1)
}

// MockInstanceEnumerator is a mock implementation of InstanceEnumerator
type MockInstanceEnumerator struct {
	mock.Mock
}

// List mocks the List method
func (m *MockInstanceEnumerator) List(ctx context.Context, regions []string) ([]awsm.Instance, error) {
	args := m.Called(ctx, regions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]awsm.Instance), args.Error(1)
}
