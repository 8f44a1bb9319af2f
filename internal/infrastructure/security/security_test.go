package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	m, err := NewTokenManager("secret", time.Hour)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	user := domain.UserRecord{ID: "u1", Email: "a@example.com", Role: domain.RoleAdmin}

	token, expiresAt, err := m.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID != "u1" || claims.Sub != "u1" || claims.Email != "a@example.com" || !claims.IsAdmin() {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ExpiresAt != expiresAt.Unix() || claims.IssuedAt == 0 {
		t.Fatalf("unexpected time claims %+v", claims)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m, _ := NewTokenManager("secret", time.Minute)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	token, _, _ := m.Issue(domain.UserRecord{ID: "u1", Role: domain.RoleUser})

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := m.Parse(token); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestParseRejectsOtherKeyAndAlgorithm(t *testing.T) {
	m, _ := NewTokenManager("secret", time.Hour)
	other, _ := NewTokenManager("other", time.Hour)
	token, _, _ := other.Issue(domain.UserRecord{ID: "u1", Role: domain.RoleUser})
	if _, err := m.Parse(token); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for foreign key, got %v", err)
	}

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "u1", "role": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := m.Parse(unsigned); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for none alg, got %v", err)
	}
}

func TestParseRejectsUnknownRole(t *testing.T) {
	m, _ := NewTokenManager("secret", time.Hour)
	token, _, _ := m.Issue(domain.UserRecord{ID: "u1", Role: "root"})
	if _, err := m.Parse(token); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("hash must not equal password")
	}
	if err := h.Compare(hash, "correct horse"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := h.Compare(hash, "wrong"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
