package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

const (
	keyAuthToken      = "auth_token"
	keyRefreshToken   = "refresh_token"
	keyTokenExpiry    = "token_expiry"
	keyUserID         = "user_id"
	keyEmployeeNumber = "employee_number"
	keyCredentialPfx  = "credential:"
)

// ErrNoCredential is returned when no password was remembered for an employee.
var ErrNoCredential = errors.New("auth: no remembered credential")

// TokenManager keeps the backend session and the hashes of passwords that
// last logged in successfully online. It is safe for concurrent use.
type TokenManager struct {
	items *cache.Cache
	now   func() time.Time
	cost  int
}

// NewTokenManager returns an empty TokenManager.
func NewTokenManager() *TokenManager {
	return &TokenManager{
		items: cache.New(cache.NoExpiration, 10*time.Minute),
		now:   time.Now,
		cost:  bcrypt.DefaultCost,
	}
}

func (m *TokenManager) str(key string) string {
	if v, ok := m.items.Get(key); ok {
		return v.(string)
	}
	return ""
}

// SaveTokens stores the session tokens. When expiry is nil the exp claim of
// authToken is used if it is a JWT.
func (m *TokenManager) SaveTokens(authToken, refreshToken string, expiry *time.Time) {
	m.items.Set(keyAuthToken, authToken, cache.NoExpiration)
	if refreshToken != "" {
		m.items.Set(keyRefreshToken, refreshToken, cache.NoExpiration)
	}

	if expiry == nil {
		expiry = tokenExpiry(authToken)
	}
	if expiry != nil {
		m.items.Set(keyTokenExpiry, *expiry, cache.NoExpiration)
	} else {
		m.items.Delete(keyTokenExpiry)
	}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend remains the authority on validity.
func tokenExpiry(token string) *time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}

// SaveUserInfo records who the session belongs to.
func (m *TokenManager) SaveUserInfo(userID int64, employeeNumber string) {
	m.items.Set(keyUserID, userID, cache.NoExpiration)
	m.items.Set(keyEmployeeNumber, employeeNumber, cache.NoExpiration)
}

// AuthToken returns the bearer token, or empty when logged out.
func (m *TokenManager) AuthToken() string { return m.str(keyAuthToken) }

func (m *TokenManager) RefreshToken() string { return m.str(keyRefreshToken) }

func (m *TokenManager) EmployeeNumber() string { return m.str(keyEmployeeNumber) }

// UserID returns the id saved by SaveUserInfo.
func (m *TokenManager) UserID() (int64, bool) {
	v, ok := m.items.Get(keyUserID)
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

// AuthorizationHeader returns "Bearer <token>" or empty.
func (m *TokenManager) AuthorizationHeader() string {
	if token := m.AuthToken(); token != "" {
		return "Bearer " + token
	}
	return ""
}

// IsTokenExpired reports whether a stored expiry has passed. Tokens without
// a known expiry never expire locally.
func (m *TokenManager) IsTokenExpired() bool {
	v, ok := m.items.Get(keyTokenExpiry)
	if !ok {
		return false
	}
	return !m.now().Before(v.(time.Time))
}

// IsAuthenticated reports whether a usable backend token is held.
func (m *TokenManager) IsAuthenticated() bool {
	return m.AuthToken() != "" && !m.IsTokenExpired()
}

// HasSession reports whether a user is signed in, online or offline.
func (m *TokenManager) HasSession() bool {
	if m.IsAuthenticated() {
		return true
	}
	_, ok := m.UserID()
	return ok && m.AuthToken() == ""
}

// ClearTokens forgets the session. Remembered credentials are kept so that
// the user can sign in again offline.
func (m *TokenManager) ClearTokens() {
	for _, key := range []string{keyAuthToken, keyRefreshToken, keyTokenExpiry, keyUserID, keyEmployeeNumber} {
		m.items.Delete(key)
	}
}

// RememberCredential stores a bcrypt hash of password for employeeNumber.
func (m *TokenManager) RememberCredential(employeeNumber, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return fmt.Errorf("failed to hash credential for %s: %w", employeeNumber, err)
	}
	m.items.Set(keyCredentialPfx+employeeNumber, hash, cache.NoExpiration)
	return nil
}

// VerifyOffline checks password against the hash remembered for employeeNumber.
func (m *TokenManager) VerifyOffline(employeeNumber, password string) error {
	v, ok := m.items.Get(keyCredentialPfx + employeeNumber)
	if !ok {
		return ErrNoCredential
	}
	return bcrypt.CompareHashAndPassword(v.([]byte), []byte(password))
}
