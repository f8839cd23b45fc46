package lambda

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

// textMediaTypes are returned to the host as plain strings; everything else is base64
var textMediaTypes = map[string]bool{
	"application/json":         true,
	"application/javascript":   true,
	"application/xml":          true,
	"application/vnd.api+json": true,
	"image/svg+xml":            true,
}

// envelope shapes resp for the integration the event came from
func (e *inboundEvent) envelope(resp *Response) any {
	body, isBase64 := encodeBody(resp.Headers, resp.Body)

	switch e.source {
	case SourceAPIGatewayV2:
		headers, cookies := joinHeaders(resp.Headers)
		return events.APIGatewayV2HTTPResponse{
			StatusCode:      resp.StatusCode,
			Headers:         headers,
			Cookies:         cookies,
			Body:            body,
			IsBase64Encoded: isBase64,
		}
	case SourceALB:
		out := events.ALBTargetGroupResponse{
			StatusCode:        resp.StatusCode,
			StatusDescription: fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			Body:              body,
			IsBase64Encoded:   isBase64,
		}
		// a target group with multi value headers enabled only reads multiValueHeaders
		if e.multiValue {
			out.MultiValueHeaders = copyHeaders(resp.Headers)
		} else {
			out.Headers, _ = joinHeaders(resp.Headers)
			if cookies := resp.Headers.Values("Set-Cookie"); len(cookies) > 0 {
				out.Headers["Set-Cookie"] = cookies[len(cookies)-1]
			}
		}
		return out
	default:
		single, multi := splitHeaders(resp.Headers)
		return events.APIGatewayProxyResponse{
			StatusCode:        resp.StatusCode,
			Headers:           single,
			MultiValueHeaders: multi,
			Body:              body,
			IsBase64Encoded:   isBase64,
		}
	}
}

func encodeBody(headers http.Header, body []byte) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	if isText(headers, body) {
		return string(body), false
	}
	return base64.StdEncoding.EncodeToString(body), true
}

func isText(headers http.Header, body []byte) bool {
	if encoding := headers.Get("Content-Encoding"); encoding != "" && encoding != "identity" {
		return false
	}

	contentType := headers.Get("Content-Type")
	if contentType == "" {
		return utf8.Valid(body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") || textMediaTypes[mediaType]
}

// splitHeaders puts single valued headers in the first map and the rest in the second
func splitHeaders(h http.Header) (map[string]string, map[string][]string) {
	single := map[string]string{}
	var multi map[string][]string
	for key, values := range h {
		switch len(values) {
		case 0:
		case 1:
			single[key] = values[0]
		default:
			if multi == nil {
				multi = map[string][]string{}
			}
			multi[key] = append([]string(nil), values...)
		}
	}
	return single, multi
}

// joinHeaders comma joins repeated headers and pulls Set-Cookie out on its own
func joinHeaders(h http.Header) (map[string]string, []string) {
	joined := map[string]string{}
	var cookies []string
	for key, values := range h {
		if key == "Set-Cookie" {
			cookies = append(cookies, values...)
			continue
		}
		if len(values) > 0 {
			joined[key] = strings.Join(values, ", ")
		}
	}
	return joined, cookies
}

func copyHeaders(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for key, values := range h {
		out[key] = append([]string(nil), values...)
	}
	return out
}
