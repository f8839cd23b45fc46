package main

import (
	"hello-lambda-api/internal/config"
	"hello-lambda-api/pkg/lambda"
	"hello-lambda-api/pkg/server"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func newAdapter(cfg *config.Config) (*lambda.Adapter, error) {
	app, err := server.NewApplication(cfg)
	if err != nil {
		return nil, err
	}
	return lambda.NewAdapter(app,
		lambda.WithBasePath(cfg.Lambda.BasePath),
		lambda.WithLogger(logrus.StandardLogger()),
	), nil
}

func main() {
	cfg, err := config.GetOptimizedConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.ConfigureLogger(logrus.StandardLogger(), cfg); err != nil {
		logrus.Fatalf("Failed to configure logging: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)

	adapter, err := newAdapter(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": cfg.Serverless.FunctionName,
		"stage":    cfg.Serverless.Stage,
		"mode":     cfg.DeploymentMode(),
	}).Info("Lambda handler ready")

	awslambda.Start(adapter)
}
