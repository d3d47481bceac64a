package generator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	awsm "ec2sshconfig/awsd/models"
	"ec2sshconfig/errors"
	genm "ec2sshconfig/generator/models"
	"ec2sshconfig/resolver"
)

func TestService_Run_EndToEnd(t *testing.T) {
	enumerator := new(MockInstanceEnumerator)
	enumerator.On("List", mock.Anything, []string{"us-east-1"}).Return([]awsm.Instance{
		{InstanceID: "i-2", Region: "us-east-1", PrivateIP: "10.0.0.2", ImageID: "ami-1", KeyName: "prod", Tags: tags("Name", "web2", "Env", "Prod")},
		{InstanceID: "i-1", Region: "us-east-1", PrivateIP: "10.0.0.1", ImageID: "ami-1", KeyName: "prod", Tags: tags("Name", "web1", "Env", "Prod")},
	}, nil)

	images := new(resolver.MockImageDescriber)
	images.On("DescribeImage", mock.Anything, "us-east-1", "ami-1").
		Return(&awsm.Image{ImageID: "ami-1", Name: "Ubuntu 20.04 LTS"}, nil).Once()

	service := NewService(enumerator, resolver.New(images, zap.NewNop()), zap.NewNop(), time.Minute, 4)
	result, err := service.Run(context.Background(), []string{"us-east-1"})
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	assert.Equal(t, "Prod", result.Groups[0].Environment)
	assert.Equal(t, []string{"web1", "web2"}, labels(result.Groups[0]))
	for _, h := range result.Groups[0].Hosts {
		assert.Equal(t, "ubuntu", h.User)
		assert.Equal(t, "~/.ssh/prod.pem", h.IdentityFile)
	}
	assert.Equal(t, 2, result.Summary.Total)
	assert.Equal(t, 0, result.Dropped)
	images.AssertNumberOfCalls(t, "DescribeImage", 1)
}

func TestService_Run_SingleFetchPerImage(t *testing.T) {
	var instances []awsm.Instance
	for i := 0; i < 40; i++ {
		image := "ami-a"
		if i%2 == 1 {
			image = "ami-b"
		}
		instances = append(instances, awsm.Instance{
			InstanceID: fmt.Sprintf("i-%02d", i),
			Region:     "us-west-2",
			PrivateIP:  fmt.Sprintf("10.0.0.%d", i),
			ImageID:    image,
		})
	}

	enumerator := new(MockInstanceEnumerator)
	enumerator.On("List", mock.Anything, mock.Anything).Return(instances, nil)

	images := new(resolver.MockImageDescriber)
	images.On("DescribeImage", mock.Anything, "us-west-2", "ami-a").
		After(10*time.Millisecond).
		Return(&awsm.Image{ImageID: "ami-a", Name: "Amazon Linux 2"}, nil)
	images.On("DescribeImage", mock.Anything, "us-west-2", "ami-b").
		Return(&awsm.Image{ImageID: "ami-b", Name: "CentOS 7"}, nil)

	service := NewService(enumerator, resolver.New(images, zap.NewNop()), zap.NewNop(), 0, 8)
	result, err := service.Run(context.Background(), []string{"us-west-2"})
	require.NoError(t, err)

	assert.Equal(t, 40, result.Summary.Total)
	images.AssertNumberOfCalls(t, "DescribeImage", 2)
	for _, h := range result.Groups[0].Hosts {
		assert.Contains(t, []string{"ec2-user", "root"}, h.User)
	}
}

func TestService_Run_BastionTopology(t *testing.T) {
	enumerator := new(MockInstanceEnumerator)
	enumerator.On("List", mock.Anything, mock.Anything).Return([]awsm.Instance{
		{InstanceID: "i-db", PrivateIP: "10.0.1.5", ImageID: "ami-1", KeyName: "prod", Tags: tags("Name", "db", "Env", "Prod", "Bastion", "jump")},
		{InstanceID: "i-jump", PrivateIP: "10.0.0.5", PublicIP: "54.1.1.1", ImageID: "ami-1", KeyName: "ops", Tags: tags("Name", "jump", "Env", "Prod", "Service", "bastion")},
		{InstanceID: "i-ci", PrivateIP: "10.0.2.5", ImageID: "ami-1", KeyName: "dev", Tags: tags("Name", "ci", "Env", "Dev")},
		{InstanceID: "i-gone", ImageID: "ami-1"},
	}, nil)

	users := new(MockUserResolver)
	users.On("Resolve", mock.Anything, mock.Anything, "ami-1").Return("ubuntu", nil)

	service := NewService(enumerator, users, zap.NewNop(), time.Minute, 2)
	result, err := service.Run(context.Background(), []string{"us-east-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Bastion", "Dev", "Prod"}, environments(result.Groups))
	jump := result.Groups[0].Hosts[0]
	assert.Equal(t, "54.1.1.1", jump.Address)
	assert.Equal(t, "127.0.0.1:1080", jump.DynamicForward)
	db := result.Groups[2].Hosts[0]
	assert.Equal(t, "ssh -q jump nc %h 22", db.ProxyCommand)
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, []genm.EnvCount{
		{Environment: "Bastion", Count: 1},
		{Environment: "Dev", Count: 1},
		{Environment: "Prod", Count: 1},
	}, result.Summary.ByEnvironment)
}

func TestService_Run_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(e *MockInstanceEnumerator, u *MockUserResolver)
		errType errors.ErrorType
	}{
		{
			name: "enumeration failure aborts",
			setup: func(e *MockInstanceEnumerator, u *MockUserResolver) {
				e.On("List", mock.Anything, mock.Anything).
					Return(nil, errors.NewEnumerationError("us-east-1", fmt.Errorf("AuthFailure")))
			},
			errType: errors.ErrEnumeration,
		},
		{
			name: "resolution failure aborts",
			setup: func(e *MockInstanceEnumerator, u *MockUserResolver) {
				e.On("List", mock.Anything, mock.Anything).Return([]awsm.Instance{
					{InstanceID: "i-1", PrivateIP: "10.0.0.1", ImageID: "ami-ok"},
					{InstanceID: "i-2", PrivateIP: "10.0.0.2", ImageID: "ami-bad"},
				}, nil)
				u.On("Resolve", mock.Anything, mock.Anything, "ami-ok").Return("ubuntu", nil).Maybe()
				u.On("Resolve", mock.Anything, mock.Anything, "ami-bad").
					Return("", errors.NewResolutionError("ami-bad", fmt.Errorf("InvalidAMIID.NotFound")))
			},
			errType: errors.ErrResolution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enumerator := new(MockInstanceEnumerator)
			users := new(MockUserResolver)
			tt.setup(enumerator, users)

			service := NewService(enumerator, users, zap.NewNop(), time.Minute, 2)
			result, err := service.Run(context.Background(), []string{"us-east-1"})
			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.errType))
		})
	}
}

func TestService_Run_Timeout(t *testing.T) {
	enumerator := new(MockInstanceEnumerator)
	enumerator.On("List", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
		})

	service := NewService(enumerator, new(MockUserResolver), zap.NewNop(), 5*time.Second, 1)
	_, err := service.Run(context.Background(), []string{"us-east-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
