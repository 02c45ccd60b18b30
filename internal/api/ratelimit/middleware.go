package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-travel-rag/app/observability/metrics"
	appMiddleware "github.com/FACorreiaa/go-travel-rag/app/middleware"
	"github.com/FACorreiaa/go-travel-rag/internal/api"
)

// Middleware enforces the limiter's policy on every request. Rejections
// carry a Retry-After header with the seconds until the caller's window
// resets; admitted requests carry the usual X-RateLimit headers.
func Middleware(limiter *Limiter, policyName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := appMiddleware.GetCallerKey(r.Context())
			if !ok {
				key = r.RemoteAddr
			}

			decision := limiter.Admit(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.policy.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				retryAfter := int(time.Until(decision.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				metrics.Get().RateLimitRejectionsTotal.Add(r.Context(), 1,
					metric.WithAttributes(attribute.String("policy", policyName)))

				api.ErrorResponse(w, r, http.StatusTooManyRequests, "Too many requests. Please wait and retry.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
