package appMiddleware

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// CallerKeyKey holds the caller identity used for rate limiting.
const CallerKeyKey contextKey = "callerKey"

// Claims is the subset of the identity provider's token we care about.
// Token issuance and refresh are an external collaborator's concern; this
// middleware only reads an identity out of a bearer token when one is
// present.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET_KEY"))
}

// CallerIdentity resolves a stable per-caller key for admission control:
// the token subject when a valid bearer token is supplied, otherwise the
// remote address (RealIP middleware must run first). Requests are never
// rejected here; an unidentifiable caller still gets a key.
func CallerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr

		authHeader := r.Header.Get("Authorization")
		if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return jwtSecret(), nil
			})
			if err == nil && token.Valid {
				if claims.UserID != "" {
					key = claims.UserID
				} else if claims.Subject != "" {
					key = claims.Subject
				}
			}
		}

		ctx := context.WithValue(r.Context(), CallerKeyKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCallerKey returns the caller key set by CallerIdentity.
func GetCallerKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(CallerKeyKey).(string)
	return key, ok && key != ""
}
