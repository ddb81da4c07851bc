package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pawtrail/internal/adapters/observability"
	"pawtrail/internal/domain"
)

type AuthConfig struct {
	BcryptCost     int
	PhoneCodeTTL   time.Duration
	ResendCooldown time.Duration
	LoginMaxFails  int
	LoginFailTTL   time.Duration
	DevMode        bool // echo phone codes in responses
}

type AuthService struct {
	users  domain.UserRepository
	cache  domain.Cache
	tokens domain.TokenIssuer
	cfg    AuthConfig
}

func NewAuthService(users domain.UserRepository, cache domain.Cache, tokens domain.TokenIssuer, cfg AuthConfig) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, cache: cache, tokens: tokens, cfg: cfg}
}

type AuthResult struct {
	Token       string
	ExpiresAt   time.Time
	User        domain.User
	Memberships []domain.Membership
}

// LoginUniversal authenticates by email or E.164 phone plus password.
// Failed attempts per identifier are throttled through the cache.
func (s *AuthService) LoginUniversal(ctx context.Context, identifier, password string) (AuthResult, error) {
	identifier = strings.TrimSpace(strings.ToLower(identifier))
	if identifier == "" || password == "" {
		return AuthResult{}, fmt.Errorf("%w: identifier and password are required", domain.ErrValidation)
	}
	throttleKey := "login:fails:" + identifier
	var fails int64
	if ok, _ := s.cache.Get(ctx, throttleKey, &fails); ok && fails >= int64(s.cfg.LoginMaxFails) {
		return AuthResult{}, domain.ErrRateLimited
	}

	var (
		u   domain.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.users.GetUserByEmail(ctx, identifier)
	} else {
		u, err = s.users.GetUserByPhone(ctx, identifier)
	}
	if err != nil || !u.HasPassword() {
		s.recordFailure(ctx, throttleKey, "password")
		return AuthResult{}, domain.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)) != nil {
		s.recordFailure(ctx, throttleKey, "password")
		return AuthResult{}, domain.ErrUnauthorized
	}
	_ = s.cache.Del(ctx, throttleKey)
	return s.issue(ctx, u)
}

// SendPhoneCode generates a one-time 6-digit code with a resend cooldown.
// The code is returned only in dev mode; production delivery goes through
// the SMS gateway, which only needs the cache entry.
func (s *AuthService) SendPhoneCode(ctx context.Context, phone string) (code string, err error) {
	phone = strings.TrimSpace(phone)
	if !validPhone(phone) {
		return "", fmt.Errorf("%w: phone must be E.164", domain.ErrValidation)
	}
	won, err := s.cache.SetNX(ctx, "phone:cooldown:"+phone, 1, int(s.cfg.ResendCooldown.Seconds()))
	if err != nil {
		return "", err
	}
	if !won {
		return "", domain.ErrRateLimited
	}
	code, err = randomCode()
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, "phone:code:"+phone, code, int(s.cfg.PhoneCodeTTL.Seconds())); err != nil {
		return "", err
	}
	if s.cfg.DevMode {
		return code, nil
	}
	return "", nil
}

// VerifyPhoneCode checks the one-time code and signs the caller in, creating
// the user and phone identity on first contact. orgID, when present, joins
// the user to that org as a customer.
func (s *AuthService) VerifyPhoneCode(ctx context.Context, phone, code string, orgID *int64) (AuthResult, error) {
	phone = strings.TrimSpace(phone)
	var stored string
	ok, err := s.cache.Get(ctx, "phone:code:"+phone, &stored)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		observability.AuthFailures.WithLabelValues("phone").Inc()
		return AuthResult{}, domain.ErrUnauthorized
	}
	_ = s.cache.Del(ctx, "phone:code:"+phone)

	u, err := s.userForIdentity(ctx, domain.ProviderPhone, phone, func(u *domain.User) { u.Phone = &phone })
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.joinOrg(ctx, u.ID, orgID); err != nil {
		return AuthResult{}, err
	}
	return s.issue(ctx, u)
}

// SocialLogin links or creates a user from a provider-verified subject.
// Token verification against Google/Apple happens at the edge; this layer
// only trusts the already-verified (subject, email) pair.
func (s *AuthService) SocialLogin(ctx context.Context, provider domain.IdentityProvider, subject, email, fullName string, orgID *int64) (AuthResult, error) {
	if provider != domain.ProviderGoogle && provider != domain.ProviderApple {
		return AuthResult{}, fmt.Errorf("%w: unsupported provider %q", domain.ErrValidation, provider)
	}
	if subject == "" {
		return AuthResult{}, fmt.Errorf("%w: subject is required", domain.ErrValidation)
	}
	u, err := s.userForIdentity(ctx, provider, subject, func(u *domain.User) {
		if email != "" {
			e := strings.ToLower(email)
			u.Email = &e
		}
		if fullName != "" {
			u.FullName = &fullName
		}
	})
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.joinOrg(ctx, u.ID, orgID); err != nil {
		return AuthResult{}, err
	}
	return s.issue(ctx, u)
}

// WalletChallenge issues a nonce the wallet must sign. Nonces are single-use
// and expire with the phone-code TTL.
func (s *AuthService) WalletChallenge(ctx context.Context, pubKeyHex string) (string, error) {
	if _, err := walletKey(pubKeyHex); err != nil {
		return "", err
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	nonce := hex.EncodeToString(buf)
	if err := s.cache.Set(ctx, "wallet:nonce:"+pubKeyHex, nonce, int(s.cfg.PhoneCodeTTL.Seconds())); err != nil {
		return "", err
	}
	return nonce, nil
}

// WalletVerify checks the ed25519 signature over the issued nonce and signs
// the wallet's user in.
func (s *AuthService) WalletVerify(ctx context.Context, pubKeyHex, signatureHex string, orgID *int64) (AuthResult, error) {
	pub, err := walletKey(pubKeyHex)
	if err != nil {
		return AuthResult{}, err
	}
	var nonce string
	ok, err := s.cache.Get(ctx, "wallet:nonce:"+pubKeyHex, &nonce)
	if err != nil {
		return AuthResult{}, err
	}
	sig, sigErr := hex.DecodeString(signatureHex)
	if !ok || sigErr != nil || len(sig) != ed25519.SignatureSize || !ed25519.Verify(pub, []byte(nonce), sig) {
		observability.AuthFailures.WithLabelValues("wallet").Inc()
		return AuthResult{}, domain.ErrUnauthorized
	}
	_ = s.cache.Del(ctx, "wallet:nonce:"+pubKeyHex)

	u, err := s.userForIdentity(ctx, domain.ProviderWallet, pubKeyHex, nil)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.joinOrg(ctx, u.ID, orgID); err != nil {
		return AuthResult{}, err
	}
	return s.issue(ctx, u)
}

// ---- internals ----

func (s *AuthService) issue(ctx context.Context, u domain.User) (AuthResult, error) {
	ms, err := s.users.ListMemberships(ctx, u.ID)
	if err != nil {
		return AuthResult{}, err
	}
	tok, exp, err := s.tokens.Issue(u, ms)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: tok, ExpiresAt: exp, User: u, Memberships: ms}, nil
}

// userForIdentity resolves the identity's user, creating both on first login.
func (s *AuthService) userForIdentity(ctx context.Context, provider domain.IdentityProvider, subject string, fill func(*domain.User)) (domain.User, error) {
	if id, err := s.users.GetIdentity(ctx, provider, subject); err == nil {
		return s.users.GetUser(ctx, id.UserID)
	}
	u := domain.User{ID: uuid.NewString()}
	if fill != nil {
		fill(&u)
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	if _, err := s.users.LinkIdentity(ctx, domain.Identity{UserID: u.ID, Provider: provider, Subject: subject}); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *AuthService) joinOrg(ctx context.Context, userID string, orgID *int64) error {
	if orgID == nil {
		return nil
	}
	return s.users.EnsureMembership(ctx, domain.Membership{UserID: userID, OrgID: *orgID, Role: domain.RoleCustomer})
}

func (s *AuthService) recordFailure(ctx context.Context, key, method string) {
	observability.AuthFailures.WithLabelValues(method).Inc()
	_, _ = s.cache.Incr(ctx, key, int(s.cfg.LoginFailTTL.Seconds()))
}

func validPhone(p string) bool {
	if !strings.HasPrefix(p, "+") || len(p) < 8 || len(p) > 16 {
		return false
	}
	for _, r := range p[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func walletKey(pubKeyHex string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(pubKeyHex)
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key must be %d hex-encoded bytes", domain.ErrValidation, ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(b), nil
}

// HashPassword is used by account provisioning and seeds.
func HashPassword(plain string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	return string(b), err
}
