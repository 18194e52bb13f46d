package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger writes a message followed by alternating key value pairs
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Identity holds the attributes embedded in issued tokens
type Identity interface {
	// ID is the internal record id, empty for identities without a record
	ID() string
	Matricula() string
	Role() Role
}

// Config holds auth options. It is built once at startup and never mutated.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetCookieDomain() string
	GetSuperAdminMatricula() string
	GetSuperAdminPassword() string
}

// CredentialAuthenticator validates login credentials
type CredentialAuthenticator interface {
	VerifyCredentials(ctx context.Context, matricula, password string) (Identity, error)
}

type defLogger struct{}

func (d defLogger) Error(msg string, kv ...any) {
	fmt.Println(formatLine("ERR", msg, kv))
}

func (d defLogger) Warn(msg string, kv ...any) {
	fmt.Println(formatLine("WRN", msg, kv))
}

func (d defLogger) Info(msg string, kv ...any) {
	fmt.Println(formatLine("INF", msg, kv))
}

func (d defLogger) Debug(msg string, kv ...any) {
	fmt.Println(formatLine("DBG", msg, kv))
}

// formatLine renders "[LVL] AUTH msg key=value ...". A trailing key without
// a value is printed as !BADKEY=key, the way slog reports it.
func formatLine(level, msg string, kv []any) string {
	var b strings.Builder
	b.WriteString("[" + level + "] AUTH ")
	b.WriteString(strings.TrimRight(msg, "\n"))
	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			b.WriteString(" !BADKEY=" + fmt.Sprint(kv[i]))
			break
		}
		b.WriteString(" " + fmt.Sprint(kv[i]) + "=" + fmt.Sprint(kv[i+1]))
	}
	return b.String()
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
