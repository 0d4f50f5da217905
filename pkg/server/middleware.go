package server

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"retail-rfm/pkg/apperr"
	"retail-rfm/pkg/logger"
)

const (
	headerRequestID = "X-Request-ID"
	ginRequestID    = "request_id"
)

// RequestID reprend l'en-tête X-Request-ID du client ou en génère un, le
// renvoie dans la réponse et le dépose dans le contexte lu par pkg/logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Set(ginRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, id))
		c.Next()
	}
}

// GetRequestID renvoie l'identifiant posé par RequestID ("" sinon).
func GetRequestID(c *gin.Context) string {
	return c.GetString(ginRequestID)
}

// Recovery convertit une panique en 500 "internal" ; la pile va dans les logs.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered",
				"panic", rec,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Error:     "internal server error",
				Kind:      apperr.KindInternal.String(),
				RequestID: GetRequestID(c),
			})
		}()
		c.Next()
	}
}

// RequestLogger trace une ligne par requête, au niveau dicté par le statut.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if id := c.Param("id"); id != "" {
			attrs = append(attrs, "dataset_id", id)
		}
		ctx := c.Request.Context()
		logger.WithContext(ctx).Log(ctx, levelFor(status), "request completed", attrs...)
	}
}

// levelFor : 5xx en erreur, 4xx en avertissement, le reste en info.
func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// IPRateLimiter limite les envois par adresse IP (seau à jetons par IP).
type IPRateLimiter struct {
	limiters   sync.Map
	rate       rate.Limit
	burst      int
	retryAfter int // secondes avant le prochain jeton
}

// NewIPRateLimiter autorise perMinute envois par IP, en rafale de même taille.
func NewIPRateLimiter(perMinute int) *IPRateLimiter {
	return &IPRateLimiter{
		rate:       rate.Limit(float64(perMinute) / 60.0),
		burst:      perMinute,
		retryAfter: int(math.Ceil(60.0 / float64(perMinute))),
	}
}

func (i *IPRateLimiter) limiter(ip string) *rate.Limiter {
	l, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return l.(*rate.Limiter)
}

// RateLimit rejette en 429 (avec Retry-After) les IP qui ont épuisé leur quota.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if i.limiter(ip).Allow() {
			c.Next()
			return
		}
		logger.Warn(c.Request.Context(), "rate limit exceeded", "client_ip", ip, "route", c.FullPath())
		c.Header("Retry-After", strconv.Itoa(i.retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Error:     "rate limit exceeded",
			RequestID: GetRequestID(c),
		})
	}
}
