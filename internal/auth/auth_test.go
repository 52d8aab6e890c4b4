package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func TestMintVerify(t *testing.T) {
	token, err := Mint(testSecret, "alice", "127.0.0.1", time.Hour)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	// JWT compact form
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("token has %d parts, want 3", len(parts))
	}

	user, err := Verify(testSecret, token, "127.0.0.1")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if user != "alice" {
		t.Errorf("user = %q, want %q", user, "alice")
	}
}

func TestVerify_Rejects(t *testing.T) {
	valid, err := Mint(testSecret, "alice", "127.0.0.1", time.Hour)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		IP: "127.0.0.1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		IP:               "127.0.0.1",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token without expiry: %v", err)
	}

	tests := []struct {
		name    string
		secret  string
		token   string
		ip      string
		wantErr error
	}{
		{"empty token", testSecret, "", "127.0.0.1", ErrNoToken},
		{"null token", testSecret, "null", "127.0.0.1", ErrNoToken},
		{"garbage", testSecret, "not-a-token", "127.0.0.1", ErrInvalidToken},
		{"wrong secret", "other-secret", valid, "127.0.0.1", ErrInvalidToken},
		{"wrong ip", testSecret, valid, "10.0.0.1", ErrInvalidToken},
		{"expired", testSecret, expired, "127.0.0.1", ErrInvalidToken},
		{"no expiry", testSecret, noExpiry, "127.0.0.1", ErrInvalidToken},
		{"anon", testSecret, AnonToken, "127.0.0.1", ErrInvalidToken},
		{"no secret", "", valid, "127.0.0.1", ErrNoSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(tt.secret, tt.token, tt.ip)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		IP: "127.0.0.1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := Verify(testSecret, token, "127.0.0.1"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestMint_Validation(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		user     string
		validity time.Duration
		wantErr  string
	}{
		{"no secret", "", "alice", time.Hour, "signing secret is required"},
		{"no user", testSecret, "", time.Hour, "user is required"},
		{"zero validity", testSecret, "alice", 0, "validity must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Mint(tt.secret, tt.user, "127.0.0.1", tt.validity)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}
