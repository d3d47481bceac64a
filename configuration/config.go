package configuration

import (
	stderrors "errors"
	"io/fs"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ec2sshconfig/errors"
)

const (
	packageName = "configuration"
)

// Config holds the application configuration
type Config struct {
	Regions               []string
	AWSRegion             string
	AcessKeyID            string
	AccessSecret          string
	LocalstackURL         string
	LogLevel              string
	LogFormat             string
	RunTimeout            time.Duration
	MaxConcurrency        int
	OutputPath            string
	OverridesFile         string
	StrictHostKeyChecking string
}

// Initialize sets up the configuration system
func Initialize() (*Config, error) {
	logger := zap.L().With(
		zap.String("package", packageName),
		zap.String("function", "Initialize"),
	)

	// Set default values
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("RUN_TIMEOUT_SECONDS", 60)
	viper.SetDefault("MAX_CONCURRENCY", 8)
	viper.SetDefault("OUTPUT_PATH", "")
	viper.SetDefault("OVERRIDES_FILE", "")
	viper.SetDefault("STRICT_HOST_KEY_CHECKING", "no")

	// Configure Viper to read from environment
	viper.AutomaticEnv()

	// Read from .env file unless a test or caller already picked one
	if viper.ConfigFileUsed() == "" {
		viper.SetConfigFile(".env")
	}
	if err := viper.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, errors.New(errors.ErrConfigParse, "error reading config file",
				map[string]interface{}{
					"config_file": viper.ConfigFileUsed(),
				}, err)
		}
		logger.Info("No .env file found, using environment variables and defaults",
			zap.String("operation", "config_loading"),
		)
	}

	awsRegion := viper.GetString("AWS_REGION")
	regions := ParseRegions(viper.GetStringSlice("REGIONS"))
	if len(regions) == 0 {
		regions = ParseRegions([]string{awsRegion})
	}
	if len(regions) == 0 {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid REGIONS",
			map[string]interface{}{
				"config_key": "REGIONS",
			}, nil)
	}
	logger.Info("Regions configured",
		zap.Strings("regions", regions),
		zap.String("operation", "config_validation"),
	)

	timeout := viper.GetInt("RUN_TIMEOUT_SECONDS")
	if timeout <= 0 {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid RUN_TIMEOUT_SECONDS",
			map[string]interface{}{
				"config_key": "RUN_TIMEOUT_SECONDS",
				"value":      timeout,
			}, nil)
	}
	logger.Info("Run timeout configured",
		zap.Int("seconds", timeout),
		zap.String("operation", "config_validation"),
	)

	concurrency := viper.GetInt("MAX_CONCURRENCY")
	if concurrency <= 0 {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid MAX_CONCURRENCY",
			map[string]interface{}{
				"config_key": "MAX_CONCURRENCY",
				"value":      concurrency,
			}, nil)
	}
	logger.Info("Max concurrency configured",
		zap.Int("workers", concurrency),
		zap.String("operation", "config_validation"),
	)

	logFormat := viper.GetString("LOG_FORMAT")
	if logFormat != "json" && logFormat != "console" {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid LOG_FORMAT",
			map[string]interface{}{
				"config_key": "LOG_FORMAT",
				"value":      logFormat,
			}, nil)
	}

	config := &Config{
		Regions:               regions,
		AWSRegion:             awsRegion,
		AccessSecret:          viper.GetString("AWS_SECRET_ACCESS_KEY"),
		AcessKeyID:            viper.GetString("AWS_ACCESS_KEY_ID"),
		LocalstackURL:         viper.GetString("LOCALSTACK_URL"),
		LogLevel:              viper.GetString("LOG_LEVEL"),
		LogFormat:             logFormat,
		RunTimeout:            time.Duration(timeout) * time.Second,
		MaxConcurrency:        concurrency,
		OutputPath:            viper.GetString("OUTPUT_PATH"),
		OverridesFile:         viper.GetString("OVERRIDES_FILE"),
		StrictHostKeyChecking: viper.GetString("STRICT_HOST_KEY_CHECKING"),
	}

	logger.Info("Configuration loaded successfully",
		zap.String("operation", "config_complete"),
	)
	return config, nil
}

// ParseRegions splits comma separated entries, trims them and drops
// blanks and repeats while keeping first-seen order.
func ParseRegions(raw []string) []string {
	var regions []string
	for _, entry := range raw {
		for _, r := range strings.Split(entry, ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				regions = append(regions, r)
			}
		}
	}
	return lo.Uniq(regions)
}

func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	// SetConfigFile bypasses the search path, so a missing file surfaces as a
	// plain fs error instead of ConfigFileNotFoundError.
	return stderrors.Is(err, fs.ErrNotExist)
}
