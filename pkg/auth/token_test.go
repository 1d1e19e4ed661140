package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/tokenomics/pkg/config"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "tokenomics",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()
	accountID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{AccountID: accountID, Role: enums.AccountRoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.AccountID != accountID {
		t.Fatalf("expected account_id %s, got %s", accountID, claims.AccountID)
	}
	if claims.Role != enums.AccountRoleAdmin {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Subject != accountID.String() {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatal("expected generated jti")
	}
}

func TestParseAccessTokenRejectsBadTokens(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()
	accountID := uuid.New()

	expired, err := MintAccessToken(cfg, now.Add(-2*time.Hour), AccessTokenPayload{AccountID: accountID, Role: enums.AccountRoleUser})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	valid, _ := MintAccessToken(cfg, now, AccessTokenPayload{AccountID: accountID, Role: enums.AccountRoleUser})
	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, valid); err == nil {
		t.Fatal("expected signature mismatch")
	}
	other = cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, valid); err == nil {
		t.Fatal("expected issuer mismatch")
	}

	// HS512 is not an accepted algorithm
	forged := jwt.NewWithClaims(jwt.SigningMethodHS512, AccessTokenClaims{
		AccountID: accountID,
		Role:      enums.AccountRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := forged.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected unexpected algorithm to be rejected")
	}
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	cfg := testConfig()
	now := time.Now()
	cases := []struct {
		name    string
		cfg     config.JWTConfig
		payload AccessTokenPayload
		want    string
	}{
		{"missing secret", config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, AccessTokenPayload{AccountID: uuid.New(), Role: enums.AccountRoleUser}, "secret"},
		{"missing account", cfg, AccessTokenPayload{Role: enums.AccountRoleUser}, "account id"},
		{"bad role", cfg, AccessTokenPayload{AccountID: uuid.New(), Role: "root"}, "role"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := MintAccessToken(tc.cfg, now, tc.payload)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
