package bandmate

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface the domain core needs. Arguments
// are alternating key/value pairs, matching glog.Logger so a named glog
// child can be passed straight in.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	TokenService() TokenService
}

// TokenService mints and validates bearer tokens
type TokenService interface {
	Generate(identity Identity) (string, error)
	Validate(tokenString string) (*JWTClaims, error)
}

// IdentityProvider ensures we have a store to retrieve auth identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetAuthScheme() string
}

// DefaultLogger returns the fallback stdout logger used when no logger
// is injected.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }

func (d defLogger) print(level, msg string, args ...any) {
	if len(args) == 0 {
		fmt.Printf("[%s] BANDMATE %s\n", level, msg)
		return
	}
	fmt.Printf("[%s] BANDMATE %s %v\n", level, msg, args)
}
