package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"workmesh/pkg/claims"
	"workmesh/pkg/nonce"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gorilla/mux"
)

var (
	noSessUrls = map[string]string{
		"/api/login":    http.MethodPost,
		"/api/register": http.MethodPost,
	}
)

// CheckNonceJWT admits a request only when the bearer token verifies and
// the nonce embedded in it still equals the user's current nonce. A token
// minted before the last rotation fails the comparison and reads as no
// session at all.
func CheckNonceJWT(nonceRepo nonce.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := mux.CurrentRoute(r)
			template, err := route.GetPathTemplate()

			if err != nil {
				http.Error(w, "Route not found", http.StatusNotFound)
				return
			}

			if method, ok := noSessUrls[template]; ok && method == r.Method {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(auth, "Bearer ")

			hashSecretGetter := func(token *jwt.Token) (interface{}, error) {
				method, ok := token.Method.(*jwt.SigningMethodHMAC)
				if !ok || method.Alg() != "HS256" {
					http.Error(w, "bad sign method", http.StatusUnauthorized)
					return nil, nil
				}
				JWTSecret := os.Getenv("JWT_SECRET")
				return []byte(JWTSecret), nil
			}

			tokenClaims := &claims.Claims{}

			parsed, err := jwt.ParseWithClaims(token, tokenClaims, hashSecretGetter)
			if err != nil || !parsed.Valid || tokenClaims.User.ID == "" {
				http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			current, err := nonceRepo.Current(tokenClaims.User.ID)
			if err != nil || !nonceMatches(current.Value, tokenClaims.Nonce) {
				http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claims.TokenContextKey, tokenClaims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func nonceMatches(current, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(current), []byte(presented)) == 1
}
