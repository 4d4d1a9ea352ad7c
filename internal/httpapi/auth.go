package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"kasirinaja/checkout/internal/domain"
)

const (
	userStoreTimeout = 5 * time.Second
	tokenIssuer      = "kasirinaja-checkout"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrUsernameTaken      = errors.New("username already exists")
)

// UserStore persists logins so every checkout instance shares them.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// AuthManager signs and verifies the bearer tokens cashiers use against the
// payment session API. Credentials are cached in memory and reloaded from the
// UserStore on login.
type AuthManager struct {
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore

	mu    sync.RWMutex
	users map[string]credential
}

type credential struct {
	hash    string
	role    string
	active  bool
	created time.Time
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	a := &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		users:     make(map[string]credential),
	}
	a.refreshUsers(context.Background())
	return a
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	a.refreshUsers(ctx)

	username := normalizeUsername(req.Username)
	cred, ok := a.lookup(username)
	if !ok || !verifyPassword(cred.hash, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if !cred.active {
		return domain.LoginResponse{}, ErrInactiveAccount
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, cred.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        cred.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// ParseToken verifies an HS256 token issued by this manager and returns the
// actor it was issued to.
func (a *AuthManager) ParseToken(raw string) (domain.Actor, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (interface{}, error) {
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: subject, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username string, role string, expiresAt time.Time) (string, error) {
	now := time.Now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	a.refreshUsers(ctx)

	username := normalizeUsername(req.Username)
	if err := validateCashier(username, req.Password); err != nil {
		return domain.CashierUser{}, err
	}
	if _, exists := a.lookup(username); exists {
		return domain.CashierUser{}, ErrUsernameTaken
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.CashierUser{}, fmt.Errorf("failed to hash password")
	}
	account := domain.UserAccount{
		Username:  username,
		Password:  hash,
		Role:      domain.RoleCashier,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if a.userStore != nil {
		if err := a.userStore.CreateUser(ctx, account); err != nil {
			return domain.CashierUser{}, err
		}
	}

	a.mu.Lock()
	a.users[username] = credential{hash: hash, role: account.Role, active: true, created: account.CreatedAt}
	a.mu.Unlock()

	return domain.CashierUser{
		Username:  username,
		Role:      account.Role,
		Active:    true,
		CreatedAt: account.CreatedAt,
	}, nil
}

func (a *AuthManager) ListCashiers(ctx context.Context) []domain.CashierUser {
	a.refreshUsers(ctx)

	a.mu.RLock()
	cashiers := make([]domain.CashierUser, 0, len(a.users))
	for username, cred := range a.users {
		if cred.role != domain.RoleCashier {
			continue
		}
		cashiers = append(cashiers, domain.CashierUser{
			Username:  username,
			Role:      cred.role,
			Active:    cred.active,
			CreatedAt: cred.created,
		})
	}
	a.mu.RUnlock()

	slices.SortFunc(cashiers, func(x, y domain.CashierUser) int {
		return strings.Compare(x.Username, y.Username)
	})
	return cashiers
}

func (a *AuthManager) lookup(username string) (credential, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cred, ok := a.users[username]
	return cred, ok
}

// refreshUsers reloads accounts from the user store. Accounts stored with a
// plain-text password are upgraded to a bcrypt hash on the way.
func (a *AuthManager) refreshUsers(ctx context.Context) {
	if a.userStore == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, userStoreTimeout)
	defer cancel()

	accounts, err := a.userStore.ListUsers(ctx)
	if err != nil {
		log.Printf("[auth] WARN: list users failed: %v", err)
		return
	}

	loaded := make(map[string]credential, len(accounts))
	for _, account := range accounts {
		username := normalizeUsername(account.Username)
		if username == "" {
			continue
		}
		hash := account.Password
		if !isPasswordHash(hash) {
			upgraded, err := hashPassword(hash)
			if err != nil {
				continue
			}
			hash = upgraded
			if err := a.userStore.UpdateUserPassword(ctx, username, hash); err != nil {
				log.Printf("[auth] WARN: password upgrade failed user=%s: %v", username, err)
			}
		}
		loaded[username] = credential{hash: hash, role: account.Role, active: account.Active, created: account.CreatedAt}
	}

	a.mu.Lock()
	for username, cred := range loaded {
		a.users[username] = cred
	}
	a.mu.Unlock()
}

func validateCashier(username string, password string) error {
	switch {
	case len(username) < 4:
		return fmt.Errorf("username must be at least 4 characters")
	case strings.ContainsAny(username, " \t\r\n"):
		return fmt.Errorf("username must not contain spaces")
	case len(strings.TrimSpace(password)) < 6:
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func verifyPassword(hash string, input string) bool {
	if !isPasswordHash(hash) || strings.TrimSpace(input) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isPasswordHash(value string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
