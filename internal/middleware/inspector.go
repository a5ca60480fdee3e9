package middleware

import (
	"bytes"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sekolahku/portal-gateway/internal/monitor"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Signature patterns for reflected-XSS and SQL-injection payloads. Kept
// deliberately narrow: the inspector records evidence for campaign
// detection, it is not a WAF.
var (
	xssPattern  = regexp.MustCompile(`(?i)(<script|javascript:|onerror\s*=|onload\s*=|<iframe|document\.cookie|eval\s*\()`)
	sqliPattern = regexp.MustCompile(`(?i)(union\s+select|insert\s+into|drop\s+table|delete\s+from|'\s*or\s+'?1'?\s*=\s*'?1|;\s*--)`)
)

// Fields blanked before any part of the payload is attached to an event.
// Secrets must never enter the event log.
var sensitiveFields = []string{"password", "currentPassword", "newPassword", "token", "secret", "otp"}

const (
	maxInspectBytes = 64 * 1024
	sampleLimit     = 120
)

// Inspector scans query parameters and JSON bodies of state-changing
// requests for attack payloads and records the hits. In strict mode a hit
// also blocks the request with a blocked_request event.
type Inspector struct {
	mon    *monitor.Monitor
	strict bool
}

// NewInspector creates an inspector reporting into the given monitor
func NewInspector(mon *monitor.Monitor, strict bool) *Inspector {
	return &Inspector{mon: mon, strict: strict}
}

// Middleware returns the inspection step as a gin middleware. It runs after
// the gateway pipeline: only admitted requests are inspected.
func (ins *Inspector) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isStateChanging(c.Request.Method) {
			c.Next()
			return
		}

		var xssSample, sqliSample string

		for key, values := range c.Request.URL.Query() {
			for _, value := range values {
				classify("query."+key, value, &xssSample, &sqliSample)
			}
		}

		if strings.Contains(c.GetHeader("Content-Type"), "application/json") && c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err == nil {
				// Hand the handler an untouched copy of what was read.
				c.Request.Body = io.NopCloser(bytes.NewReader(body))

				scan := body
				if len(scan) > maxInspectBytes {
					scan = scan[:maxInspectBytes]
				}
				walkStrings(gjson.ParseBytes(redactSensitive(scan)), "body", func(path, value string) {
					classify(path, value, &xssSample, &sqliSample)
				})
			}
		}

		clientIP := c.ClientIP()
		path := c.Request.URL.Path

		if xssSample != "" {
			ins.mon.LogEvent(monitor.SecurityEvent{
				Type:      monitor.EventXSSAttempt,
				Severity:  monitor.SeverityHigh,
				ClientIP:  clientIP,
				UserAgent: c.GetHeader("User-Agent"),
				Endpoint:  path,
				Method:    c.Request.Method,
				Reason:    xssSample,
			})
			log.Printf("🕵️ [Inspector] XSS payload from %s on %s", clientIP, path)
		}
		if sqliSample != "" {
			ins.mon.LogEvent(monitor.SecurityEvent{
				Type:      monitor.EventSQLInjectionAttempt,
				Severity:  monitor.SeverityHigh,
				ClientIP:  clientIP,
				UserAgent: c.GetHeader("User-Agent"),
				Endpoint:  path,
				Method:    c.Request.Method,
				Reason:    sqliSample,
			})
			log.Printf("🕵️ [Inspector] SQL injection payload from %s on %s", clientIP, path)
		}

		if ins.strict && (xssSample != "" || sqliSample != "") {
			ins.mon.LogEvent(monitor.SecurityEvent{
				Type:      monitor.EventBlockedRequest,
				Severity:  monitor.SeverityHigh,
				ClientIP:  clientIP,
				Endpoint:  path,
				Method:    c.Request.Method,
				Reason:    "request blocked by payload inspection",
			})
			c.JSON(400, gin.H{
				"error":   "Bad Request",
				"code":    "blocked_request",
				"message": "Permintaan ditolak karena terdeteksi konten berbahaya",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// classify records the first offending sample per category
func classify(path, value string, xssSample, sqliSample *string) {
	if *xssSample == "" && xssPattern.MatchString(value) {
		*xssSample = formatSample(path, value)
	}
	if *sqliSample == "" && sqliPattern.MatchString(value) {
		*sqliSample = formatSample(path, value)
	}
}

func formatSample(path, value string) string {
	if len(value) > sampleLimit {
		value = value[:sampleLimit] + "..."
	}
	return path + ": " + value
}

// walkStrings visits every string value in a JSON document, depth first
func walkStrings(value gjson.Result, path string, visit func(path, value string)) {
	switch {
	case value.IsObject() || value.IsArray():
		value.ForEach(func(key, child gjson.Result) bool {
			childPath := path + "." + key.String()
			walkStrings(child, childPath, visit)
			return true
		})
	case value.Type == gjson.String:
		visit(path, value.String())
	}
}

// redactSensitive blanks well-known secret fields at the top level of the
// payload so their values can never leak into an event sample
func redactSensitive(body []byte) []byte {
	for _, field := range sensitiveFields {
		if gjson.GetBytes(body, field).Exists() {
			if redacted, err := sjson.SetBytes(body, field, "<redacted>"); err == nil {
				body = redacted
			}
		}
	}
	return body
}
