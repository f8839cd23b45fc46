package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func init() {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
}

func TestReadEvent(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "get-root.yaml")
	yamlEvent := "httpMethod: GET\npath: /\nheaders:\n  accept: application/json\n"
	if err := os.WriteFile(yamlPath, []byte(yamlEvent), 0o644); err != nil {
		t.Fatal(err)
	}

	jsonPath := filepath.Join(dir, "get-root.json")
	if err := os.WriteFile(jsonPath, []byte(`{"httpMethod":"GET","path":"/"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("YAML", func(t *testing.T) {
		data, err := readEvent(yamlPath, nil)
		if err != nil {
			t.Fatalf("readEvent failed: %v", err)
		}
		var event map[string]any
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("Converted event is not JSON: %v", err)
		}
		if event["httpMethod"] != "GET" || event["path"] != "/" {
			t.Errorf("Unexpected event %v", event)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := readEvent(jsonPath, nil)
		if err != nil {
			t.Fatalf("readEvent failed: %v", err)
		}
		if string(data) != `{"httpMethod":"GET","path":"/"}` {
			t.Errorf("Expected file contents unchanged, got %q", data)
		}
	})

	t.Run("Stdin", func(t *testing.T) {
		data, err := readEvent("-", strings.NewReader(`{"httpMethod":"GET"}`))
		if err != nil {
			t.Fatalf("readEvent failed: %v", err)
		}
		if string(data) != `{"httpMethod":"GET"}` {
			t.Errorf("Unexpected stdin contents %q", data)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := readEvent(filepath.Join(dir, "nope.json"), nil); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

func TestInvokeLocal(t *testing.T) {
	out, err := invokeLocal(context.Background(), "/", []byte(`{"httpMethod":"GET","path":"/"}`))
	if err != nil {
		t.Fatalf("invokeLocal failed: %v", err)
	}

	var envelope struct {
		StatusCode int    `json:"statusCode"`
		Body       string `json:"body"`
	}
	if err := json.Unmarshal(out, &envelope); err != nil {
		t.Fatalf("Envelope is not JSON: %v", err)
	}
	if envelope.StatusCode != 200 || envelope.Body != `{"message":"Hello from FastAPI on Lambda"}` {
		t.Errorf("Unexpected envelope %+v", envelope)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		envelope string
		want     string
	}{
		{`{"statusCode":200,"body":"{\"message\":\"hi\"}"}`, "status 200, body 16 B"},
		{`{"statusCode":200,"body":"AAEC","isBase64Encoded":true}`, "status 200, body 3 B"},
		{`{"statusCode":404,"body":""}`, "status 404, body 0 B"},
	}

	for _, tt := range tests {
		got, err := summarize([]byte(tt.envelope))
		if err != nil {
			t.Fatalf("summarize failed: %v", err)
		}
		if got != tt.want {
			t.Errorf("summarize(%s) = %q, want %q", tt.envelope, got, tt.want)
		}
	}

	if _, err := summarize([]byte("not json")); err == nil {
		t.Error("Expected error for invalid envelope")
	}
}
