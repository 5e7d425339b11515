package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	internalauth "tasktrack/internal/auth"
	"tasktrack/internal/fault"
	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

const (
	sessionCookieName = "tasktrack_session"
	defaultSessionTTL = time.Hour
)

var errInvalidCredentials = errors.New("invalid credentials")

// AuthService encapsulates browser auth operations backed by the store.
type AuthService struct {
	store      store.Gateway
	sessionTTL time.Duration
	adminRole  string
}

// authSession is a resolved session and the identity it carries.
type authSession struct {
	User      *models.User
	Identity  models.Identity
	Token     string
	ExpiresAt time.Time
	// Renewed is set when the expiry moved and the cookie must be resent.
	Renewed bool
}

// NewUserInput provisions an account. Password is plain text.
type NewUserInput struct {
	Username           string
	Password           string
	FirstName          string
	LastName           string
	DepartmentID       *int64
	RoleID             *int64
	MustChangePassword bool
}

func NewAuthService(gw store.Gateway, sessionTTL time.Duration, adminRole string) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &AuthService{store: gw, sessionTTL: sessionTTL, adminRole: adminRole}
}

func (a *AuthService) identity(u *models.User) models.Identity {
	return models.IdentityFor(*u, a.adminRole)
}

func (a *AuthService) Login(ctx context.Context, username, password string, now time.Time) (*authSession, error) {
	const op = "login"
	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, fault.E(fault.ValidationFailure, op, err)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fault.Errorf(fault.ValidationFailure, op, "password is required")
	}

	user, err := store.Users{}.GetByUsername(ctx, a.store.DB(), normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		internalauth.DummyVerify(password)
		return nil, errInvalidCredentials
	}
	if !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}

	return a.startSession(ctx, a.store.DB(), user, now)
}

// Authenticate resolves a session token. An expiring session is extended
// once less than half of its lifetime remains.
func (a *AuthService) Authenticate(ctx context.Context, token string, now time.Time) (*authSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	tokenHash := hashSessionToken(token)
	session, user, err := store.Sessions{}.Lookup(ctx, a.store.DB(), tokenHash, now)
	if err != nil || session == nil || user == nil {
		return nil, err
	}

	out := &authSession{User: user, Identity: a.identity(user), Token: token, ExpiresAt: session.ExpiresAt}
	if session.ExpiresAt.Sub(now) < a.sessionTTL/2 {
		out.ExpiresAt = now.Add(a.sessionTTL)
		if err := (store.Sessions{}).Extend(ctx, a.store.DB(), tokenHash, out.ExpiresAt, now); err != nil {
			return nil, err
		}
		out.Renewed = true
	}
	return out, nil
}

func (a *AuthService) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return store.Sessions{}.Revoke(ctx, a.store.DB(), hashSessionToken(token))
}

// ChangePassword replaces the caller's password, clears the forced-change
// flag and rotates every session of the user into a fresh one.
func (a *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string, now time.Time) (*authSession, error) {
	const op = "change password"
	user, err := store.Users{}.Get(ctx, a.store.DB(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fault.Errorf(fault.Unauthorized, op, "user no longer exists")
	}
	if !internalauth.VerifyPassword(user.PasswordHash, current) {
		return nil, fault.Errorf(fault.ValidationFailure, op, "current password is incorrect")
	}
	if current == next {
		return nil, fault.Errorf(fault.ValidationFailure, op, "new password must differ from the current one")
	}
	hash, err := internalauth.HashPassword(next)
	if err != nil {
		return nil, passwordFault(op, err)
	}

	var session *authSession
	err = a.store.WithTx(ctx, func(q store.Querier) error {
		if err := (store.Users{}).SetPassword(ctx, q, userID, hash, false); err != nil {
			return err
		}
		if err := (store.Sessions{}).RevokeForUser(ctx, q, userID); err != nil {
			return err
		}
		user.PasswordHash = hash
		user.MustChangePassword = false
		session, err = a.startSession(ctx, q, user, now)
		return err
	})
	if err != nil {
		return nil, fault.Wrap(fault.TransactionFailure, op, err)
	}
	return session, nil
}

// ResetPassword sets a password chosen by an admin. The user must change it
// at next sign-in, and existing sessions end.
func (a *AuthService) ResetPassword(ctx context.Context, userID int64, password string) error {
	const op = "reset password"
	hash, err := internalauth.HashPassword(password)
	if err != nil {
		return passwordFault(op, err)
	}
	err = a.store.WithTx(ctx, func(q store.Querier) error {
		if err := (store.Users{}).SetPassword(ctx, q, userID, hash, true); err != nil {
			return err
		}
		return store.Sessions{}.RevokeForUser(ctx, q, userID)
	})
	return fault.Wrap(fault.TransactionFailure, op, err)
}

// CreateUser validates and stores a new account.
func (a *AuthService) CreateUser(ctx context.Context, in NewUserInput) (*models.User, error) {
	const op = "create user"
	username, err := internalauth.NormalizeUsername(in.Username)
	if err != nil {
		return nil, fault.E(fault.ValidationFailure, op, err)
	}
	hash, err := internalauth.HashPassword(in.Password)
	if err != nil {
		return nil, passwordFault(op, err)
	}

	user := &models.User{
		Username:           username,
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		DepartmentID:       in.DepartmentID,
		RoleID:             in.RoleID,
		PasswordHash:       hash,
		MustChangePassword: in.MustChangePassword,
	}
	err = a.store.WithTx(ctx, func(q store.Querier) error {
		if err := checkUserReferences(ctx, q, user.DepartmentID, user.RoleID); err != nil {
			return err
		}
		return store.Users{}.Create(ctx, q, user)
	})
	if err != nil {
		return nil, fault.Wrap(fault.TransactionFailure, op, err)
	}
	return store.Users{}.Get(ctx, a.store.DB(), user.ID)
}

func checkUserReferences(ctx context.Context, q store.Querier, departmentID, roleID *int64) error {
	if departmentID != nil && *departmentID > 0 {
		ok, err := store.Departments().Exists(ctx, q, *departmentID)
		if err != nil {
			return err
		}
		if !ok {
			return fault.Errorf(fault.ValidationFailure, "check user references", "department %d does not exist", *departmentID)
		}
	}
	if roleID != nil && *roleID > 0 {
		ok, err := store.Roles().Exists(ctx, q, *roleID)
		if err != nil {
			return err
		}
		if !ok {
			return fault.Errorf(fault.ValidationFailure, "check user references", "role %d does not exist", *roleID)
		}
	}
	return nil
}

func (a *AuthService) startSession(ctx context.Context, q store.Querier, user *models.User, now time.Time) (*authSession, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(a.sessionTTL)
	if err := (store.Sessions{}).Create(ctx, q, user.ID, hashSessionToken(token), expiresAt, now); err != nil {
		return nil, err
	}
	return &authSession{User: user, Identity: a.identity(user), Token: token, ExpiresAt: expiresAt}, nil
}

func passwordFault(op string, err error) error {
	if errors.Is(err, internalauth.ErrWeakPassword) {
		return fault.E(fault.ValidationFailure, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
