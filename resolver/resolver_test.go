package resolver

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ec2sshconfig/awsd/models"
	"ec2sshconfig/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		imageName   string
		description string
		expected    string
	}{
		{name: "ubuntu by name", imageName: "Ubuntu 20.04 LTS", expected: "ubuntu"},
		{name: "amazon linux by name", imageName: "Amazon Linux 2", expected: "ec2-user"},
		{name: "centos falls back", imageName: "CentOS 7", expected: "root"},
		{name: "ubuntu in description", imageName: "golden-2024-01", description: "Based on UBUNTU jammy", expected: "ubuntu"},
		{name: "amazon linux in description", imageName: "amzn2-ami-hvm", description: "Amazon Linux 2 AMI", expected: "ec2-user"},
		{name: "ubuntu wins over amazon linux", imageName: "Amazon Linux port", description: "ubuntu base", expected: "ubuntu"},
		{name: "empty metadata", expected: "root"},
		{name: "words split across fields do not match", imageName: "amazon", description: "linux", expected: "root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.imageName, tt.description))
			// classification is deterministic
			assert.Equal(t, Classify(tt.imageName, tt.description), Classify(tt.imageName, tt.description))
		})
	}
}

func TestResolve_CacheHit(t *testing.T) {
	images := new(MockImageDescriber)
	images.On("DescribeImage", mock.Anything, "us-east-1", "ami-1").
		Return(&models.Image{ImageID: "ami-1", Name: "Amazon Linux 2"}, nil).Once()

	r := New(images, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		user, err := r.Resolve(ctx, "us-east-1", "ami-1")
		require.NoError(t, err)
		assert.Equal(t, "ec2-user", user)
	}

	images.AssertNumberOfCalls(t, "DescribeImage", 1)
	assert.Equal(t, 1, r.Len())
}

func TestResolve_SingleFlight(t *testing.T) {
	images := new(MockImageDescriber)
	images.On("DescribeImage", mock.Anything, "us-west-2", "ami-shared").
		After(20*time.Millisecond).
		Return(&models.Image{ImageID: "ami-shared", Name: "Ubuntu 22.04"}, nil)

	r := New(images, zap.NewNop())
	ctx := context.Background()

	const callers = 50
	var wg sync.WaitGroup
	users := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			users[i], errs[i] = r.Resolve(ctx, "us-west-2", "ami-shared")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "ubuntu", users[i])
	}
	images.AssertNumberOfCalls(t, "DescribeImage", 1)
}

func TestResolve_Seeded(t *testing.T) {
	images := new(MockImageDescriber)
	r := New(images, nil)
	r.Seed("ami-pinned", "admin")

	user, err := r.Resolve(context.Background(), "eu-west-1", "ami-pinned")
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
	images.AssertNotCalled(t, "DescribeImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_Errors(t *testing.T) {
	images := new(MockImageDescriber)
	images.On("DescribeImage", mock.Anything, "us-east-1", "ami-missing").
		Return(nil, fmt.Errorf("InvalidAMIID.NotFound")).Twice()

	r := New(images, zap.NewNop())
	ctx := context.Background()

	_, err := r.Resolve(ctx, "us-east-1", "ami-missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrResolution))
	id, ok := errors.ImageID(err)
	assert.True(t, ok)
	assert.Equal(t, "ami-missing", id)

	// failures are not cached
	_, ok = r.Cached("ami-missing")
	assert.False(t, ok)
	_, err = r.Resolve(ctx, "us-east-1", "ami-missing")
	require.Error(t, err)
	images.AssertNumberOfCalls(t, "DescribeImage", 2)

	_, err = r.Resolve(ctx, "us-east-1", "")
	assert.True(t, errors.Is(err, errors.ErrResolution))
	images.AssertNumberOfCalls(t, "DescribeImage", 2)
}
