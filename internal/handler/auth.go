package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tsena-dev/backend/internal/domain/account"
)

const actorKey = "actor"

// Auth validates bearer tokens and resolves the request's actor. Tokens are
// HMAC-signed JWTs carrying the account id in `sub`; the subject is resolved
// against the accounts store, so the role is always the stored one and a
// token for a deleted account stops working immediately.
type Auth struct {
	secret   []byte
	accounts account.Repository
}

// NewAuth creates an Auth verifier with the given HMAC secret.
func NewAuth(secret []byte, accounts account.Repository) *Auth {
	return &Auth{secret: secret, accounts: accounts}
}

// Require is a middleware that rejects requests without a valid bearer
// token and stores the resolved actor in the request context.
func (a *Auth) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := a.actorFromHeader(c.Request.Context(), c.GetHeader("Authorization"))
		switch {
		case err == nil:
			c.Set(actorKey, actor)
			c.Next()
		case errors.Is(err, errUnauthorized):
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Code:    http.StatusUnauthorized,
				Kind:    "unauthorized",
				Message: "missing or invalid bearer token",
			})
		default:
			respondError(c, err)
			c.Abort()
		}
	}
}

var errUnauthorized = errors.New("unauthorized")

func (a *Auth) actorFromHeader(ctx context.Context, header string) (account.Actor, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return account.Actor{}, errUnauthorized
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return account.Actor{}, errUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return account.Actor{}, errUnauthorized
	}

	acc, err := a.accounts.GetByID(ctx, sub)
	if errors.Is(err, account.ErrNotFound) {
		return account.Actor{}, errUnauthorized
	}
	if err != nil {
		return account.Actor{}, errors.Wrap(err, "resolve account")
	}

	return account.Actor{AccountID: acc.ID, Role: acc.Role}, nil
}

// actorFrom returns the actor stored by Require. It panics on routes that
// were registered without the middleware; that is a programming error.
func actorFrom(c *gin.Context) account.Actor {
	return c.MustGet(actorKey).(account.Actor)
}

// NewToken signs a token for the given actor. Used by tests; the production
// token issuer lives elsewhere.
func NewToken(secret []byte, actor account.Actor) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  actor.AccountID,
		"role": string(actor.Role),
	})
	return t.SignedString(secret)
}
