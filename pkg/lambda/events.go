package lambda

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// ErrUnsupportedEvent is returned when a payload matches none of the known HTTP event shapes
var ErrUnsupportedEvent = errors.New("unsupported event shape")

// EventSource identifies which Lambda integration produced an event
type EventSource int

const (
	SourceUnknown EventSource = iota
	SourceAPIGatewayV1
	SourceAPIGatewayV2
	SourceALB
)

func (s EventSource) String() string {
	switch s {
	case SourceAPIGatewayV1:
		return "apigateway-v1"
	case SourceAPIGatewayV2:
		return "apigateway-v2"
	case SourceALB:
		return "alb"
	default:
		return "unknown"
	}
}

// eventProbe holds just enough of a payload to tell the integrations apart
type eventProbe struct {
	Version        string `json:"version"`
	HTTPMethod     string `json:"httpMethod"`
	RequestContext struct {
		ELB  json.RawMessage `json:"elb"`
		HTTP json.RawMessage `json:"http"`
	} `json:"requestContext"`
}

// DetectSource inspects a raw payload and reports which integration sent it
func DetectSource(payload []byte) (EventSource, error) {
	var probe eventProbe
	if err := json.Unmarshal(payload, &probe); err != nil {
		return SourceUnknown, fmt.Errorf("decode event: %w", err)
	}

	switch {
	case present(probe.RequestContext.ELB):
		return SourceALB, nil
	case probe.Version == "2.0" && present(probe.RequestContext.HTTP):
		return SourceAPIGatewayV2, nil
	case probe.HTTPMethod != "":
		return SourceAPIGatewayV1, nil
	}
	return SourceUnknown, ErrUnsupportedEvent
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// inboundEvent is a decoded event plus what is needed to answer in the same shape
type inboundEvent struct {
	source     EventSource
	multiValue bool
	request    *Request
}

func decodeEvent(payload []byte) (*inboundEvent, error) {
	source, err := DetectSource(payload)
	if err != nil {
		return &inboundEvent{source: source}, err
	}

	ev := &inboundEvent{source: source}
	switch source {
	case SourceAPIGatewayV1:
		ev.request, err = decodeAPIGatewayV1(payload)
	case SourceAPIGatewayV2:
		ev.request, err = decodeAPIGatewayV2(payload)
	case SourceALB:
		ev.request, ev.multiValue, err = decodeALB(payload)
	}
	if err != nil {
		return ev, fmt.Errorf("decode %s event: %w", source, err)
	}
	return ev, nil
}

func decodeAPIGatewayV1(payload []byte) (*Request, error) {
	var event events.APIGatewayProxyRequest
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	body, err := decodeBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if len(event.MultiValueQueryStringParameters) > 0 {
		for key, values := range event.MultiValueQueryStringParameters {
			query[key] = append([]string(nil), values...)
		}
	} else {
		for key, value := range event.QueryStringParameters {
			query.Set(key, value)
		}
	}

	return &Request{
		Method:      event.HTTPMethod,
		Path:        event.Path,
		Headers:     mergeHeaders(event.Headers, event.MultiValueHeaders),
		QueryParams: query,
		Body:        body,
		RemoteAddr:  event.RequestContext.Identity.SourceIP,
	}, nil
}

func decodeAPIGatewayV2(payload []byte) (*Request, error) {
	var event events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	body, err := decodeBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return nil, err
	}

	// keep whatever pairs parse; a bad escape from the client is not a bad event
	query, _ := url.ParseQuery(event.RawQueryString)

	headers := mergeHeaders(event.Headers, nil)
	if len(event.Cookies) > 0 {
		headers.Set("Cookie", strings.Join(event.Cookies, "; "))
	}

	path := event.RawPath
	if path == "" {
		path = event.RequestContext.HTTP.Path
	}

	return &Request{
		Method:      event.RequestContext.HTTP.Method,
		Path:        path,
		Headers:     headers,
		QueryParams: query,
		Body:        body,
		RemoteAddr:  event.RequestContext.HTTP.SourceIP,
	}, nil
}

func decodeALB(payload []byte) (*Request, bool, error) {
	var event events.ALBTargetGroupRequest
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, false, err
	}

	body, err := decodeBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return nil, false, err
	}

	// ALB forwards query parameters exactly as the client sent them
	query := url.Values{}
	multiValue := len(event.MultiValueHeaders) > 0 || len(event.MultiValueQueryStringParameters) > 0
	if len(event.MultiValueQueryStringParameters) > 0 {
		for key, values := range event.MultiValueQueryStringParameters {
			for _, value := range values {
				query.Add(unescape(key), unescape(value))
			}
		}
	} else {
		for key, value := range event.QueryStringParameters {
			query.Set(unescape(key), unescape(value))
		}
	}

	headers := mergeHeaders(event.Headers, event.MultiValueHeaders)
	remoteAddr := ""
	if forwarded := headers.Get("X-Forwarded-For"); forwarded != "" {
		remoteAddr = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	return &Request{
		Method:      event.HTTPMethod,
		Path:        event.Path,
		Headers:     headers,
		QueryParams: query,
		Body:        body,
		RemoteAddr:  remoteAddr,
	}, multiValue, nil
}

func unescape(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

func decodeBody(body string, isBase64 bool) ([]byte, error) {
	if !isBase64 {
		return []byte(body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decode base64 body: %w", err)
	}
	return decoded, nil
}

// mergeHeaders folds single and multi value header maps together; multi values win
func mergeHeaders(single map[string]string, multi map[string][]string) http.Header {
	headers := http.Header{}
	for key, values := range multi {
		for _, value := range values {
			headers.Add(key, value)
		}
	}
	for key, value := range single {
		if _, ok := headers[http.CanonicalHeaderKey(key)]; !ok {
			headers.Set(key, value)
		}
	}
	return headers
}
