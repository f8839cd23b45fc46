package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hello-lambda-api/internal/config"
	"hello-lambda-api/pkg/lambda"
	"hello-lambda-api/pkg/server"

	"github.com/alexflint/go-arg"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type invokeArgs struct {
	Event    string `arg:"positional" help:"event file (.json, .yaml or .yml), stdin when omitted or -"`
	Function string `arg:"-f,--function" help:"invoke this deployed function instead of the local adapter"`
	Region   string `arg:"-r,--region" env:"AWS_REGION" help:"region of the deployed function"`
	BasePath string `arg:"--base-path" default:"/" help:"path prefix stripped before dispatch (local only)"`
	Tail     bool   `arg:"--tail" help:"print the function log tail to stderr (remote only)"`
	Verbose  bool   `arg:"-v,--verbose" help:"log each request"`
}

func (invokeArgs) Description() string {
	return "\nfeed an HTTP event through the handler and print the response envelope\n"
}

// envelopeSummary holds the fields common to every response envelope shape
type envelopeSummary struct {
	StatusCode      int    `json:"statusCode"`
	Body            string `json:"body"`
	IsBase64Encoded bool   `json:"isBase64Encoded"`
}

func main() {
	var args invokeArgs
	arg.MustParse(&args)

	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.WarnLevel)
	if args.Verbose {
		logrus.SetLevel(logrus.InfoLevel)
	}
	gin.SetMode(gin.ReleaseMode)

	payload, err := readEvent(args.Event, os.Stdin)
	if err != nil {
		logrus.Fatalf("Failed to read event: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out []byte
	if args.Function != "" {
		out, err = invokeRemote(ctx, args, payload)
	} else {
		out, err = invokeLocal(ctx, args.BasePath, payload)
	}
	if err != nil {
		logrus.Fatalf("Invocation failed: %v", err)
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		var indented bytes.Buffer
		if json.Indent(&indented, out, "", "  ") == nil {
			out = indented.Bytes()
		}
	}
	fmt.Println(string(out))

	if summary, err := summarize(out); err == nil {
		fmt.Fprintln(os.Stderr, summary)
	}
}

// readEvent loads an event file, converting YAML fixtures to JSON
func readEvent(path string, stdin io.Reader) ([]byte, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var event any
		if err := yaml.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("parse yaml event: %w", err)
		}
		return json.Marshal(event)
	}
	return data, nil
}

func invokeLocal(ctx context.Context, basePath string, payload []byte) ([]byte, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	app, err := server.NewApplication(cfg)
	if err != nil {
		return nil, err
	}
	adapter := lambda.NewAdapter(app, lambda.WithBasePath(basePath))

	return adapter.Invoke(ctx, payload)
}

func invokeRemote(ctx context.Context, args invokeArgs, payload []byte) ([]byte, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if args.Region != "" {
		opts = append(opts, awsconfig.WithRegion(args.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	input := &awslambda.InvokeInput{
		FunctionName: aws.String(args.Function),
		Payload:      payload,
	}
	if args.Tail {
		input.LogType = types.LogTypeTail
	}

	out, err := awslambda.NewFromConfig(awsCfg).Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", args.Function, err)
	}
	if out.LogResult != nil {
		if tail, err := base64.StdEncoding.DecodeString(*out.LogResult); err == nil {
			fmt.Fprintln(os.Stderr, string(tail))
		}
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("function error %s: %s", *out.FunctionError, out.Payload)
	}
	return out.Payload, nil
}

// summarize describes an envelope in one line
func summarize(envelope []byte) (string, error) {
	var s envelopeSummary
	if err := json.Unmarshal(envelope, &s); err != nil {
		return "", err
	}

	size := len(s.Body)
	if s.IsBase64Encoded {
		if decoded, err := base64.StdEncoding.DecodeString(s.Body); err == nil {
			size = len(decoded)
		}
	}
	return fmt.Sprintf("status %d, body %s", s.StatusCode, humanize.Bytes(uint64(size))), nil
}
