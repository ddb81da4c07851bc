package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pawtrail/internal/domain"
)

type fakeIssuer struct{}

func (fakeIssuer) Issue(u domain.User, _ []domain.Membership) (string, time.Time, error) {
	return "tok-" + u.ID, time.Now().Add(time.Hour), nil
}

func newAuth(f *fixture, cfg AuthConfig) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}
	if cfg.LoginMaxFails == 0 {
		cfg.LoginMaxFails = 3
	}
	if cfg.LoginFailTTL == 0 {
		cfg.LoginFailTTL = time.Minute
	}
	if cfg.PhoneCodeTTL == 0 {
		cfg.PhoneCodeTTL = 5 * time.Minute
	}
	if cfg.ResendCooldown == 0 {
		cfg.ResendCooldown = time.Minute
	}
	return NewAuthService(f.store, f.cache, fakeIssuer{}, cfg)
}

func seedPassword(t *testing.T, f *fixture, userID, plain string) {
	t.Helper()
	hash, err := HashPassword(plain, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := f.store.users[userID]
	u.PasswordHash = &hash
	f.store.users[userID] = u
}

func TestLoginUniversalEmail(t *testing.T) {
	f := newFixture()
	svc := newAuth(f, AuthConfig{})
	seedPassword(t, f, "cust-1", "hunter2!")
	ctx := context.Background()

	res, err := svc.LoginUniversal(ctx, "Cust@Example.com ", "hunter2!")
	if err != nil {
		t.Fatalf("LoginUniversal: %v", err)
	}
	if res.User.ID != "cust-1" || res.Token == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Memberships) != 1 || res.Memberships[0].OrgID != f.orgID {
		t.Fatalf("memberships: %+v", res.Memberships)
	}
}

func TestLoginUniversalWrongPassword(t *testing.T) {
	f := newFixture()
	svc := newAuth(f, AuthConfig{})
	seedPassword(t, f, "cust-1", "hunter2!")
	ctx := context.Background()

	if _, err := svc.LoginUniversal(ctx, "cust@example.com", "nope"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	// unknown identifiers look exactly like wrong passwords
	if _, err := svc.LoginUniversal(ctx, "ghost@example.com", "nope"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized for unknown user, got %v", err)
	}
}

func TestLoginThrottleAndReset(t *testing.T) {
	f := newFixture()
	svc := newAuth(f, AuthConfig{LoginMaxFails: 3})
	seedPassword(t, f, "cust-1", "hunter2!")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.LoginUniversal(ctx, "cust@example.com", "nope"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("attempt %d: want ErrUnauthorized, got %v", i, err)
		}
	}
	// locked out now, even with the right password
	if _, err := svc.LoginUniversal(ctx, "cust@example.com", "hunter2!"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	// a different identifier throttles independently
	seedPassword(t, f, "walk-1", "sekret99")
	if _, err := svc.LoginUniversal(ctx, "walk@example.com", "sekret99"); err != nil {
		t.Fatalf("other identifier blocked: %v", err)
	}

	// clearing the counter (as a successful login does) unlocks
	_ = f.cache.Del(ctx, "login:fails:cust@example.com")
	if _, err := svc.LoginUniversal(ctx, "cust@example.com", "hunter2!"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func TestPhoneCodeFlow(t *testing.T) {
	f := newFixture()
	svc := newAuth(f, AuthConfig{DevMode: true})
	ctx := context.Background()
	orgID := f.orgID

	if _, err := svc.SendPhoneCode(ctx, "12025550001"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing +: want ErrValidation, got %v", err)
	}

	code, err := svc.SendPhoneCode(ctx, "+12025550001")
	if err != nil {
		t.Fatalf("SendPhoneCode: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("dev code %q, want 6 digits", code)
	}
	// resend inside the cooldown is refused
	if _, err := svc.SendPhoneCode(ctx, "+12025550001"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on resend, got %v", err)
	}

	if _, err := svc.VerifyPhoneCode(ctx, "+12025550001", "000000", &orgID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong code: want ErrUnauthorized, got %v", err)
	}
	res, err := svc.VerifyPhoneCode(ctx, "+12025550001", code, &orgID)
	if err != nil {
		t.Fatalf("VerifyPhoneCode: %v", err)
	}
	if res.User.Phone == nil || *res.User.Phone != "+12025550001" {
		t.Fatalf("user phone not set: %+v", res.User)
	}
	if len(res.Memberships) != 1 || res.Memberships[0].Role != domain.RoleCustomer {
		t.Fatalf("org join missing: %+v", res.Memberships)
	}
	// codes are single use
	if _, err := svc.VerifyPhoneCode(ctx, "+12025550001", code, nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("replayed code: want ErrUnauthorized, got %v", err)
	}
}

func TestSocialLoginLinksOnce(t *testing.T) {
	f := newFixture()
	svc := newAuth(f, AuthConfig{})
	ctx := context.Background()

	first, err := svc.SocialLogin(ctx, domain.ProviderGoogle, "goog-sub-1", "Ana@Example.com", "Ana", nil)
	if err != nil {
		t.Fatalf("SocialLogin: %v", err)
	}
	if first.User.Email == nil || *first.User.Email != "ana@example.com" {
		t.Fatalf("email not normalized: %+v", first.User)
	}

	again, err := svc.SocialLogin(ctx, domain.ProviderGoogle, "goog-sub-1", "", "", nil)
	if err != nil {
		t.Fatalf("repeat SocialLogin: %v", err)
	}
	if again.User.ID != first.User.ID {
		t.Fatalf("repeat login produced a new user: %s vs %s", again.User.ID, first.User.ID)
	}

	if _, err := svc.SocialLogin(ctx, domain.ProviderPhone, "x", "", "", nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("phone via social: want ErrValidation, got %v", err)
	}
}

func TestWalletChallengeVerify(t *testing.T) {
	f := newFixture()
	svc := newAuth(f, AuthConfig{})
	ctx := context.Background()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pubHex := hex.EncodeToString(pub)

	if _, err := svc.WalletChallenge(ctx, "not-hex"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad key: want ErrValidation, got %v", err)
	}

	nonce, err := svc.WalletChallenge(ctx, pubHex)
	if err != nil {
		t.Fatalf("WalletChallenge: %v", err)
	}

	// a signature over something else is refused
	badSig := ed25519.Sign(priv, []byte("something else"))
	if _, err := svc.WalletVerify(ctx, pubHex, hex.EncodeToString(badSig), nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("bad signature: want ErrUnauthorized, got %v", err)
	}

	sig := ed25519.Sign(priv, []byte(nonce))
	res, err := svc.WalletVerify(ctx, pubHex, hex.EncodeToString(sig), nil)
	if err != nil {
		t.Fatalf("WalletVerify: %v", err)
	}
	if res.User.ID == "" {
		t.Fatal("no user created for wallet")
	}

	// the nonce is burned on success
	if _, err := svc.WalletVerify(ctx, pubHex, hex.EncodeToString(sig), nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("replayed nonce: want ErrUnauthorized, got %v", err)
	}

	// signing in again with a fresh challenge maps to the same user
	nonce2, err := svc.WalletChallenge(ctx, pubHex)
	if err != nil {
		t.Fatalf("second WalletChallenge: %v", err)
	}
	res2, err := svc.WalletVerify(ctx, pubHex, hex.EncodeToString(ed25519.Sign(priv, []byte(nonce2))), nil)
	if err != nil {
		t.Fatalf("second WalletVerify: %v", err)
	}
	if res2.User.ID != res.User.ID {
		t.Fatalf("wallet mapped to a new user: %s vs %s", res2.User.ID, res.User.ID)
	}
}
