package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateAndVerifyTokenPair(t *testing.T) {
	issuer := NewTokenIssuerWithSecrets("test-access-secret", "test-refresh-secret")
	pair, err := issuer.GeneratePair("user-1", "firm-1", "jane@example.com", "attorney")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	claims, err := issuer.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.UserID() != "user-1" || claims.FirmID != "firm-1" || claims.Role != "attorney" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	refresh, err := issuer.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if refresh.Email != "jane@example.com" {
		t.Fatalf("unexpected refresh claims: %+v", refresh)
	}
}

func TestAccessTokenRejectedByRefreshSecret(t *testing.T) {
	issuer := NewTokenIssuerWithSecrets("access-only", "refresh-only")
	pair, err := issuer.GeneratePair("user-1", "firm-1", "a@b.c", "admin")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := issuer.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuerWithSecrets("secret", "")
	if _, err := issuer.VerifyAccess("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidatePasswordPolicy(t *testing.T) {
	cases := []struct {
		password string
		wantErrs int
	}{
		{"CorrectHorse9!", 0},
		{"short9!A", 1},
		{"alllowercase9!again", 1},
		{"NoDigitsHere!!", 1},
		{"NoSpecials99here", 1},
		{"weak", 4},
	}
	for _, tc := range cases {
		result := ValidatePassword(tc.password)
		if len(result.Errors) != tc.wantErrs {
			t.Fatalf("%q: got %d errors %v, want %d", tc.password, len(result.Errors), result.Errors, tc.wantErrs)
		}
		if result.IsValid != (tc.wantErrs == 0) {
			t.Fatalf("%q: IsValid inconsistent with errors", tc.password)
		}
	}
}

func TestValidatePasswordListsAllViolations(t *testing.T) {
	result := ValidatePassword("weak")
	joined := strings.Join(result.Errors, "; ")
	for _, want := range []string{"12 characters", "uppercase", "number", "special"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %v", want, result.Errors)
		}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("CorrectHorse9!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "CorrectHorse9!") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "WrongHorse9!") {
		t.Fatal("wrong password accepted")
	}
}

func TestMemorySessionStoreConsumeOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	if err := store.Save(ctx, "tok-1", "user-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	live, err := store.Consume(ctx, "tok-1")
	if err != nil || !live {
		t.Fatalf("first consume: live=%v err=%v", live, err)
	}
	live, err = store.Consume(ctx, "tok-1")
	if err != nil || live {
		t.Fatalf("second consume should miss: live=%v err=%v", live, err)
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	store.Save(ctx, "tok-old", "user-1", time.Now().Add(-time.Minute))
	if live, _ := store.Consume(ctx, "tok-old"); live {
		t.Fatal("expired session should not be live")
	}
}

func TestMemorySessionStoreRevokeUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	store.Save(ctx, "tok-a", "user-1", time.Now().Add(time.Hour))
	store.Save(ctx, "tok-b", "user-1", time.Now().Add(time.Hour))
	store.Save(ctx, "tok-c", "user-2", time.Now().Add(time.Hour))
	store.RevokeUser(ctx, "user-1")
	if live, _ := store.Consume(ctx, "tok-a"); live {
		t.Fatal("revoked session still live")
	}
	if live, _ := store.Consume(ctx, "tok-c"); !live {
		t.Fatal("unrelated user's session was revoked")
	}
}
