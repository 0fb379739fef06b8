package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const guestIDKey contextKey = "guest_id"

// SessionAuthMiddleware validates the Bearer JWT issued at login and
// stores the requester identifier in the request context. The booking
// core trusts this identifier without re-validating credentials.
func SessionAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			http.Error(w, "Server misconfigured", http.StatusInternalServerError)
			return
		}

		guestID, err := parseGuestID(tokenStr, secret)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), guestIDKey, guestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseGuestID(tokenStr, secret string) (int64, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid claims")
	}
	id, ok := claims["guest_id"].(float64)
	if !ok {
		return 0, errors.New("missing guest_id claim")
	}
	return int64(id), nil
}

// GuestID returns the requester identifier stored by
// SessionAuthMiddleware.
func GuestID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(guestIDKey).(int64)
	return id, ok
}

// CronAuthMiddleware rejects the sweep trigger unless the shared secret
// is presented exactly. On mismatch no state changes happen.
func CronAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			expected := "Bearer " + secret
			if secret == "" || subtle.ConstantTimeCompare([]byte(header), []byte(expected)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
