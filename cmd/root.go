package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ec2sshconfig/awsd"
	"ec2sshconfig/configuration"
	"ec2sshconfig/errors"
	"ec2sshconfig/generator"
	genm "ec2sshconfig/generator/models"
	"ec2sshconfig/hclconf"
	"ec2sshconfig/inventory"
	"ec2sshconfig/logger"
	"ec2sshconfig/render"
	"ec2sshconfig/resolver"
)

// dependencies are the outer collaborators a run is wired with
type dependencies struct {
	clients func(cfg *configuration.Config) *awsd.RegionalClients
	writer  *render.Writer
}

func defaultDependencies() dependencies {
	return dependencies{
		clients: awsd.NewRegionalClients,
		writer:  render.NewWriter(),
	}
}

func newRootCommand(deps dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ec2sshconfig",
		Short: "Generate an SSH client config from running EC2 instances",
		Long: `ec2sshconfig lists running EC2 instances in the configured regions and
prints an SSH config grouped by the Env tag. Instances tagged Service=bastion
are emitted first with their public address; instances with a Bastion tag are
reached through that jump host.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), deps)
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("region", nil, "region to query, repeatable (env REGIONS)")
	flags.StringP("output", "o", "", "write the config to this file instead of stdout (env OUTPUT_PATH)")
	flags.String("overrides", "", "HCL file with region and image user overrides (env OVERRIDES_FILE)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.Int("timeout", 0, "overall run timeout in seconds (env RUN_TIMEOUT_SECONDS)")

	_ = viper.BindPFlag("REGIONS", flags.Lookup("region"))
	_ = viper.BindPFlag("OUTPUT_PATH", flags.Lookup("output"))
	_ = viper.BindPFlag("OVERRIDES_FILE", flags.Lookup("overrides"))
	_ = viper.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
	_ = viper.BindPFlag("RUN_TIMEOUT_SECONDS", flags.Lookup("timeout"))

	return cmd
}

func runGenerate(ctx context.Context, deps dependencies) error {
	config, err := configuration.Initialize()
	if err != nil {
		return errors.New(errors.ErrConfigParse, "Configuration initialization failed",
			map[string]interface{}{
				"operation": "config_init",
			}, err)
	}

	if err := logger.Initialize(config.LogLevel, config.LogFormat); err != nil {
		return errors.New(errors.ErrConfigInvalid, "Failed to initialize logger",
			map[string]interface{}{
				"operation": "logger_init",
			}, err)
	}
	log := zap.L().With(zap.String("package", packageName))

	result, text, err := generate(ctx, config, deps)
	if err != nil {
		log.Error("SSH config generation failed",
			zap.String("operation", "generate"),
			zap.Error(err),
		)
		return err
	}

	if err := deps.writer.Write(config.OutputPath, text); err != nil {
		return err
	}

	log.Info("SSH config generated",
		zap.String("operation", "generate_complete"),
		zap.Int("host_count", result.Summary.Total),
		zap.Int("dropped_count", result.Dropped),
	)
	return nil
}

// generate runs the pipeline and returns the validated config text. Nothing is
// written when any stage fails.
func generate(ctx context.Context, config *configuration.Config, deps dependencies) (*genm.Result, string, error) {
	log := zap.L().With(zap.String("package", packageName))

	clients := deps.clients(config)
	users := resolver.New(clients, log)

	regions := config.Regions
	if config.OverridesFile != "" {
		overrides, err := hclconf.LoadOverrides(config.OverridesFile)
		if err != nil {
			return nil, "", err
		}
		regions = hclconf.Apply(overrides, users, regions)
	}

	enumerator := &inventory.Enumerator{
		Lister:      clients,
		Concurrency: config.MaxConcurrency,
		Logger:      log,
	}
	service := generator.NewService(enumerator, users, log, config.RunTimeout, config.MaxConcurrency)

	result, err := service.Run(ctx, regions)
	if err != nil {
		return nil, "", err
	}
	log.Debug("Image users cached",
		zap.String("function", "generate"),
		zap.String("operation", "image_resolution"),
		zap.Int("image_count", users.Len()),
	)

	text, err := render.Render(result, render.Options{
		StrictHostKeyChecking: config.StrictHostKeyChecking,
	})
	if err != nil {
		return nil, "", err
	}
	if err := render.Validate(text, result.Summary.Total); err != nil {
		return nil, "", err
	}
	return result, text, nil
}
