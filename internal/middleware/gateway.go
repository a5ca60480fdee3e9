package middleware

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sekolahku/portal-gateway/internal/monitor"
	"github.com/sekolahku/portal-gateway/internal/ratelimit"
	"github.com/sekolahku/portal-gateway/internal/session"
)

// Context keys set on admitted requests
const (
	ContextKeyIdentifier    = "gatewayIdentifier"
	ContextKeySubjectID     = "subjectId"
	ContextKeyAuthenticated = "authenticated"
)

// IdentifierUnknown is the sentinel identifier when neither a subject nor a
// client IP is available. Identifiers are never empty.
const IdentifierUnknown = "unknown"

// GatewayConfig controls the admission pipeline
type GatewayConfig struct {
	// FailOpen decides what happens when the rate-limit store errors:
	// admit (true, the default) or deny with 503 (false).
	FailOpen bool
	// PublicPrefixes lists route prefixes that skip the session check.
	// Everything else under /api is a protected route.
	PublicPrefixes []string
}

// DefaultPublicPrefixes covers login/registration, the public admissions
// (PPDB) form endpoints and the health check
func DefaultPublicPrefixes() []string {
	return []string{"/health", "/api/auth", "/api/ppdb/public"}
}

// Gateway runs the fixed-order admission pipeline for every request:
// CSRF (state-changing methods) -> session (protected routes) -> rate limit.
// The first failing stage short-circuits, records exactly one security
// event, and responds with a machine-readable reason code.
type Gateway struct {
	limiter  *ratelimit.Limiter
	sessions *session.Validator
	mon      *monitor.Monitor
	cfg      GatewayConfig
}

// NewGateway wires the pipeline stages together
func NewGateway(limiter *ratelimit.Limiter, sessions *session.Validator, mon *monitor.Monitor, cfg GatewayConfig) *Gateway {
	if len(cfg.PublicPrefixes) == 0 {
		cfg.PublicPrefixes = DefaultPublicPrefixes()
	}
	return &Gateway{
		limiter:  limiter,
		sessions: sessions,
		mon:      mon,
		cfg:      cfg,
	}
}

// isProtected reports whether the route requires a valid session
func (g *Gateway) isProtected(path string) bool {
	if !strings.HasPrefix(path, "/api") {
		return false
	}
	for _, prefix := range g.cfg.PublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// Middleware returns the admission pipeline as a gin middleware
func (g *Gateway) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method
		clientIP := c.ClientIP()
		cookieHeader := c.GetHeader("Cookie")

		// Stage 1: CSRF, state-changing methods only.
		if isStateChanging(method) {
			if !ValidateCSRF(cookieHeader, c.GetHeader(CSRFHeaderName)) {
				g.mon.LogEvent(monitor.SecurityEvent{
					Type:      monitor.EventCSRFFailure,
					Severity:  monitor.SeverityHigh,
					ClientIP:  clientIP,
					UserAgent: c.GetHeader("User-Agent"),
					Endpoint:  path,
					Method:    method,
					Reason:    "CSRF token missing or mismatched",
				})
				log.Printf("🔒 [CSRF] IP: %s | Path: %s | token missing or mismatched", clientIP, path)
				c.JSON(403, gin.H{
					"error":   "Forbidden",
					"code":    "csrf_failure",
					"message": "Token CSRF tidak valid atau hilang",
				})
				c.Abort()
				return
			}
		}

		// Stage 2: session. Always validated so an authenticated subject can
		// serve as the rate-limit identifier; only protected routes deny.
		identity, failReason := g.sessions.Validate(cookieHeader)
		if g.isProtected(path) && !identity.Authenticated {
			g.mon.LogEvent(monitor.SecurityEvent{
				Type:      monitor.EventAuthFailure,
				Severity:  monitor.SeverityMedium,
				ClientIP:  clientIP,
				UserAgent: c.GetHeader("User-Agent"),
				Endpoint:  path,
				Method:    method,
				Reason:    failReason,
			})
			log.Printf("🔒 [Auth] IP: %s | Path: %s | Reason: %s", clientIP, path, failReason)
			c.JSON(401, gin.H{
				"error":   "Unauthorized",
				"code":    "auth_failure",
				"message": "Sesi tidak valid atau telah berakhir, silakan masuk kembali",
			})
			c.Abort()
			return
		}

		// Stage 3: rate limit, all routes.
		identifier := identity.SubjectID
		if identifier == "" {
			identifier = clientIP
		}
		if identifier == "" {
			identifier = IdentifierUnknown
		}

		result, err := g.limiter.Check(path, method, identifier)
		if err != nil {
			g.mon.LogEvent(monitor.SecurityEvent{
				Type:     monitor.EventSuspiciousActivity,
				Severity: monitor.SeverityCritical,
				ClientIP: clientIP,
				Endpoint: path,
				Method:   method,
				Reason:   "rate limit store unavailable: " + err.Error(),
			})
			log.Printf("🚨 [Rate Limit] store unavailable (failOpen=%v): %v", g.cfg.FailOpen, err)

			if !g.cfg.FailOpen {
				c.JSON(503, gin.H{
					"error":   "Service Unavailable",
					"code":    "storage_unavailable",
					"message": "Layanan sedang sibuk, silakan coba lagi nanti",
				})
				c.Abort()
				return
			}
			// Fail open: admit without quota headers.
		} else {
			for name, value := range ratelimit.HeaderValues(result) {
				c.Header(name, value)
			}

			if !result.Allowed {
				g.mon.LogEvent(monitor.SecurityEvent{
					Type:      monitor.EventRateLimitExceeded,
					Severity:  monitor.SeverityMedium,
					ClientIP:  clientIP,
					UserAgent: c.GetHeader("User-Agent"),
					Endpoint:  path,
					Method:    method,
					Reason:    "rate limit exceeded for " + identifier,
				})
				log.Printf("🚫 [Rate Limit] %s exceeded limit on %s (retry in %ds)", identifier, path, result.RetryAfter)
				c.JSON(429, gin.H{
					"error":   "Too Many Requests",
					"code":    "rate_limit_exceeded",
					"message": "Terlalu banyak permintaan, silakan coba lagi nanti",
				})
				c.Abort()
				return
			}
		}

		// Admitted. Business handlers only ever see this state.
		c.Set(ContextKeyIdentifier, identifier)
		c.Set(ContextKeyAuthenticated, identity.Authenticated)
		if identity.Authenticated {
			c.Set(ContextKeySubjectID, identity.SubjectID)
		}

		c.Next()
	}
}
