package awsd

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"ec2sshconfig/awsd/models"
	"ec2sshconfig/configuration"
	"ec2sshconfig/errors"
)

const (
	packageName = "awsd"
)

// EC2API is the subset of the EC2 client the generator calls
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
}

type AwsClient struct {
	client EC2API
	region string
}

// NewAWSClientWithAPI wraps an existing EC2API implementation for region
func NewAWSClientWithAPI(api EC2API, region string) *AwsClient {
	return &AwsClient{client: api, region: region}
}

// NewEC2ClientWithConfig wraps an already loaded aws.Config
func NewEC2ClientWithConfig(cfg aws.Config, endpoint string) *AwsClient {
	return &AwsClient{
		client: ec2.NewFromConfig(cfg, func(o *ec2.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		region: cfg.Region,
	}
}

// NewAWSClient creates an EC2 client for one region. Static credentials are
// used only when both halves are configured; otherwise the default chain
// (env, shared config, instance role) applies. LOCALSTACK_URL redirects the
// endpoint for local development.
func NewAWSClient(ctx context.Context, cfg *configuration.Config, region string) (*AwsClient, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AcessKeyID != "" && cfg.AccessSecret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AcessKeyID, cfg.AccessSecret, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New(errors.ErrAWSClient, "failed to load AWS config",
			map[string]interface{}{
				"region": region,
			}, err)
	}

	return NewEC2ClientWithConfig(awsCfg, cfg.LocalstackURL), nil
}

// ListInstances pages through every running instance in the client's region
// and flattens all reservations in provider order
func (a *AwsClient) ListInstances(ctx context.Context) ([]models.Instance, error) {
	logger := zap.L().With(
		zap.String("package", packageName),
		zap.String("function", "ListInstances"),
		zap.String("region", a.region),
	)

	paginator := ec2.NewDescribeInstancesPaginator(a.client, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{string(types.InstanceStateNameRunning)},
			},
		},
	})

	instances := make([]models.Instance, 0)
	pages := 0
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			logger.Error("DescribeInstances failed",
				zap.String("operation", "describe_instances"),
				zap.String("aws_error_code", apiErrorCode(err)),
				zap.Error(err),
			)
			return nil, err
		}
		pages++
		for _, reservation := range output.Reservations {
			for _, i := range reservation.Instances {
				instances = append(instances, parseInstance(i, a.region))
			}
		}
	}

	logger.Debug("Instances listed",
		zap.String("operation", "describe_instances"),
		zap.Int("pages", pages),
		zap.Int("instance_count", len(instances)),
	)
	return instances, nil
}

// DescribeImage fetches metadata for exactly one image id
func (a *AwsClient) DescribeImage(ctx context.Context, imageID string) (*models.Image, error) {
	logger := zap.L().With(
		zap.String("package", packageName),
		zap.String("function", "DescribeImage"),
		zap.String("region", a.region),
		zap.String("image_id", imageID),
	)

	output, err := a.client.DescribeImages(ctx, &ec2.DescribeImagesInput{
		ImageIds: []string{imageID},
	})
	if err != nil {
		logger.Error("DescribeImages failed",
			zap.String("operation", "describe_images"),
			zap.String("aws_error_code", apiErrorCode(err)),
			zap.Error(err),
		)
		return nil, err
	}

	for _, image := range output.Images {
		if aws.ToString(image.ImageId) != imageID {
			continue
		}
		return &models.Image{
			ImageID:     imageID,
			Name:        aws.ToString(image.Name),
			Description: aws.ToString(image.Description),
		}, nil
	}

	logger.Warn("Image not returned by DescribeImages",
		zap.String("operation", "describe_images"),
		zap.Int("image_count", len(output.Images)),
	)
	return nil, fmt.Errorf("image %s not found in %s", imageID, a.region)
}

func parseInstance(i types.Instance, region string) models.Instance {
	return models.Instance{
		InstanceID: aws.ToString(i.InstanceId),
		Region:     region,
		PrivateIP:  aws.ToString(i.PrivateIpAddress),
		PublicIP:   aws.ToString(i.PublicIpAddress),
		ImageID:    aws.ToString(i.ImageId),
		KeyName:    aws.ToString(i.KeyName),
		Tags:       parseTags(i.Tags),
	}
}

// Helper function to parse tags, skipping entries without a key
func parseTags(tags []types.Tag) []models.Tag {
	result := make([]models.Tag, 0, len(tags))
	for _, tag := range tags {
		if tag.Key == nil {
			continue
		}
		result = append(result, models.Tag{
			Key:   *tag.Key,
			Value: aws.ToString(tag.Value),
		})
	}
	return result
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
