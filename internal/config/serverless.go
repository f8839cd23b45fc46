package config

import (
	"os"
)

// ServerlessConfig holds serverless-specific configuration
type ServerlessConfig struct {
	IsLambda     bool
	FunctionName string
	Region       string
	Stage        string
}

// DetectServerless reads the environment the Lambda runtime provides
func DetectServerless() ServerlessConfig {
	return ServerlessConfig{
		IsLambda:     isRunningInLambda(),
		FunctionName: os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
		Region:       os.Getenv("AWS_REGION"),
		Stage:        GetEnv("STAGE", "dev"),
	}
}

// isRunningInLambda detects if the application is running in AWS Lambda
func isRunningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" || GetEnvAsBool("FORCE_LAMBDA_MODE", false)
}

// DeploymentMode returns the current deployment mode
func (c *Config) DeploymentMode() string {
	if c.Serverless.IsLambda {
		return "serverless"
	}
	return "server"
}

// AdaptConfigForServerless modifies configuration for serverless deployment
func AdaptConfigForServerless(config *Config) *Config {
	if !config.Serverless.IsLambda {
		return config
	}

	// CloudWatch indexes JSON fields
	if config.Log.Format == "auto" {
		config.Log.Format = "json"
	}

	// The host platform throttles invocations
	config.RateLimit = RateLimitConfig{}

	return config
}

// GetOptimizedConfig returns configuration optimized for the current deployment mode
func GetOptimizedConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	return AdaptConfigForServerless(config), nil
}
