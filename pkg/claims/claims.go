package claims

import jwt "github.com/dgrijalva/jwt-go"

type contextKey string

const (
	TokenContextKey contextKey = "token"
)

// Claims carries the authenticated user and a copy of the nonce that was
// current when the token was issued. Rotating the nonce invalidates every
// token minted under the old value.
type Claims struct {
	User struct {
		Email string `json:"email"`
		ID    string `json:"id"`
	} `json:"user"`
	Nonce string `json:"nonce"`
	jwt.StandardClaims
}
