package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"strings"
	"sync"

	"github.com/goliatone/go-repository-bun"
)

// CredentialVerifier checks matricula and password against the bootstrap
// super-admin and then the users store.
type CredentialVerifier struct {
	users      Users
	superAdmin superAdmin
	logger     Logger

	dummyOnce sync.Once
	dummyHash string
}

type superAdmin struct {
	enabled   bool
	matricula string
	userSum   [sha256.Size]byte
	passSum   [sha256.Size]byte
}

// CredentialOption customizes the verifier
type CredentialOption func(*CredentialVerifier)

// WithCredentialLogger sets the logger
func WithCredentialLogger(logger Logger) CredentialOption {
	return func(v *CredentialVerifier) {
		v.logger = normalizeLogger(logger)
	}
}

// WithSuperAdmin overrides the bootstrap administrator. An empty password
// disables it.
func WithSuperAdmin(matricula, password string) CredentialOption {
	return func(v *CredentialVerifier) {
		v.superAdmin = newSuperAdmin(matricula, password)
	}
}

var _ CredentialAuthenticator = (*CredentialVerifier)(nil)

// NewCredentialVerifier builds the verifier. The super-admin is read from cfg
// once; cfg may be nil.
func NewCredentialVerifier(users Users, cfg Config, opts ...CredentialOption) *CredentialVerifier {
	v := &CredentialVerifier{
		users:  users,
		logger: defLogger{},
	}

	if cfg != nil {
		v.superAdmin = newSuperAdmin(cfg.GetSuperAdminMatricula(), cfg.GetSuperAdminPassword())
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	return v
}

func newSuperAdmin(matricula, password string) superAdmin {
	matricula = strings.TrimSpace(matricula)
	if matricula == "" || password == "" {
		return superAdmin{}
	}
	return superAdmin{
		enabled:   true,
		matricula: matricula,
		userSum:   sha256.Sum256([]byte(matricula)),
		passSum:   sha256.Sum256([]byte(password)),
	}
}

// matches compares fixed size digests so timing does not depend on the
// length or prefix of the candidate.
func (s superAdmin) matches(matricula, password string) bool {
	if !s.enabled {
		return false
	}
	userSum := sha256.Sum256([]byte(matricula))
	passSum := sha256.Sum256([]byte(password))
	userOK := subtle.ConstantTimeCompare(userSum[:], s.userSum[:])
	passOK := subtle.ConstantTimeCompare(passSum[:], s.passSum[:])
	return userOK&passOK == 1
}

// VerifyCredentials returns the identity for matricula when password matches.
// Unknown matricula and wrong password both yield ErrInvalidCredentials.
func (v *CredentialVerifier) VerifyCredentials(ctx context.Context, matricula, password string) (Identity, error) {
	matricula = strings.TrimSpace(matricula)
	if matricula == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if v.superAdmin.matches(matricula, password) {
		return NewSuperAdminIdentity(v.superAdmin.matricula), nil
	}

	user, err := v.users.GetByMatricula(ctx, matricula)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// burn a comparison so unknown matriculas cost the same as bad passwords
			_ = ComparePasswordAndHash(password, v.fakeHash())
			v.logger.Debug("VerifyCredentials unknown matricula", "matricula", matricula)
			return nil, ErrInvalidCredentials
		}
		v.logger.Error("VerifyCredentials lookup failed", "error", err)
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		v.logger.Debug("VerifyCredentials password mismatch", "matricula", matricula)
		return nil, ErrInvalidCredentials
	}

	return NewIdentityFromUser(user), nil
}

// ReloadIdentity resolves the current identity behind claims so a refreshed
// session carries the role as it is stored now.
func (v *CredentialVerifier) ReloadIdentity(ctx context.Context, claims AuthClaims) (Identity, error) {
	if claims == nil {
		return nil, ErrInvalidToken
	}

	if v.superAdmin.enabled && claims.UserID() == "" && claims.Matricula() == v.superAdmin.matricula {
		return NewSuperAdminIdentity(v.superAdmin.matricula), nil
	}

	user, err := v.users.GetByMatricula(ctx, claims.Matricula())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			v.logger.Info("ReloadIdentity user no longer exists", "matricula", claims.Matricula())
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

func (v *CredentialVerifier) fakeHash() string {
	v.dummyOnce.Do(func() {
		h, err := HashPassword("sigma-unknown-matricula")
		if err == nil {
			v.dummyHash = h
		}
	})
	return v.dummyHash
}
