package middleware

import (
	"net/http"
	"strings"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/metrics"
	"value-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderAuthorityKey = "X-Authority-Key"
	HeaderRequestID    = "X-Request-ID"

	// Context keys
	CtxAccountID = "account_id"
	CtxSessionID = "session_id"
	CtxAuthority = "authority"
)

// RequestID tags every request with a correlation id, reusing the caller's
// X-Request-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(response.CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// SessionAuth validates the session JWT issued by POST /sessions and binds
// the account id to the request.
func SessionAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) == len("Bearer ") {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(authHeader[len("Bearer "):])
		if err != nil {
			log.Debug().Err(err).Str("client_ip", c.ClientIP()).Msg("session token rejected")
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxAccountID, claims.AccountID)
		c.Set(CtxSessionID, claims.SessionID)
		c.Next()
	}
}

// AuthorityAuth admits requests carrying an X-Authority-Key that matches the
// configured argon2id hash. Admitted requests act as authorityID.
func AuthorityAuth(hashSvc ports.HashService, keyHash, authorityID string, audit ports.AuditService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderAuthorityKey)
		if key == "" || keyHash == "" {
			response.Error(c, apperror.ErrInvalidAuthorityKey())
			c.Abort()
			return
		}

		ok, err := hashSvc.Verify(key, keyHash)
		if err != nil {
			log.Error().Err(err).Msg("authority key hash is malformed")
			response.Error(c, apperror.InternalError(err))
			c.Abort()
			return
		}
		if !ok {
			log.Warn().
				Bool("security_event", true).
				Str("client_ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Msg("authority key rejected")
			if audit != nil {
				audit.Log(c.Request.Context(), &domain.AuditLog{
					ID:           uuid.New(),
					Action:       domain.AuditActionAuthorityRejected,
					ResourceType: "route",
					ResourceID:   c.FullPath(),
					IPAddress:    c.ClientIP(),
					CreatedAt:    time.Now().UTC(),
				})
			}
			response.Error(c, apperror.ErrInvalidAuthorityKey())
			c.Abort()
			return
		}

		c.Set(CtxAccountID, authorityID)
		c.Set(CtxAuthority, true)
		c.Next()
	}
}

// AccountID returns the authenticated account bound by SessionAuth or AuthorityAuth.
func AccountID(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxAccountID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// Actor builds the service-level actor for the current request.
func Actor(c *gin.Context) ports.Actor {
	id, _ := AccountID(c)
	return ports.Actor{
		ID:        id,
		Authority: c.GetBool(CtxAuthority),
		ClientIP:  c.ClientIP(),
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("request_id", c.GetString(response.CtxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP())
		if last := c.Errors.Last(); last != nil {
			event = event.Err(last.Err)
		}
		event.Msg("http request")
	}
}

// Metrics records request counts and latency by route template.
func Metrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": apperror.CodeInternal,
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize caps the request body. Reads past maxBytes fail, which
// surfaces as a binding error in the handler.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
