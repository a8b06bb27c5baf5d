package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	userModel "ecochain/models/user"
	"ecochain/store/memory"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T, clock func() time.Time) (*Service, *memory.Store) {
	t.Helper()
	s := memory.New()
	svc, err := NewService(s, Options{
		Secret:     "test-secret",
		Expiry:     time.Hour,
		BcryptCost: bcrypt.MinCost,
		Now:        clock,
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc, s
}

func signUpInput(email string, kind userModel.UserType) SignUpInput {
	return SignUpInput{
		Name:     "Asha",
		Email:    email,
		Password: "green123",
		Phone:    "9876543210",
		Address:  "4 Lake Road",
		UserType: kind,
	}
}

func TestSignUpCreatesProfile(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t, nil)

	picker, err := svc.SignUp(ctx, signUpInput(" Picker@Example.com ", userModel.TypePicker))
	if err != nil {
		t.Fatal(err)
	}
	stored, err := s.GetUser(ctx, picker.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Email != "picker@example.com" || stored.Points != 0 || stored.Tier != userModel.DefaultTier {
		t.Errorf("stored profile = %+v", stored)
	}
	if stored.IsAvailable == nil || *stored.IsAvailable {
		t.Errorf("new picker availability = %v, want false", stored.IsAvailable)
	}
	if stored.PasswordHash == "green123" || stored.PasswordHash == "" {
		t.Error("password stored in clear text")
	}

	generator, err := svc.SignUp(ctx, signUpInput("gen@example.com", userModel.TypeGenerator))
	if err != nil {
		t.Fatal(err)
	}
	if generator.User.IsAvailable != nil {
		t.Error("generators must not carry an availability flag")
	}

	claims, err := svc.Verify(generator.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != generator.User.ID || claims.UserType != string(userModel.TypeGenerator) {
		t.Errorf("claims = %+v", claims)
	}
}

func TestSignUpValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	tests := []struct {
		name   string
		mutate func(in *SignUpInput)
	}{
		{"bad email", func(in *SignUpInput) { in.Email = "not-an-email" }},
		{"short password", func(in *SignUpInput) { in.Password = "12345" }},
		{"unknown user type", func(in *SignUpInput) { in.UserType = "admin" }},
		{"blank name", func(in *SignUpInput) { in.Name = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := signUpInput("x@example.com", userModel.TypeGenerator)
			tt.mutate(&in)
			if _, err := svc.SignUp(ctx, in); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("SignUp() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSignUpTwiceFails(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	if _, err := svc.SignUp(ctx, signUpInput("dup@example.com", userModel.TypeGenerator)); err != nil {
		t.Fatal(err)
	}
	_, err := svc.SignUp(ctx, signUpInput("DUP@example.com", userModel.TypePicker))
	if !errors.Is(err, ErrEmailInUse) {
		t.Errorf("second SignUp() error = %v, want ErrEmailInUse", err)
	}
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	created, err := svc.SignUp(ctx, signUpInput("in@example.com", userModel.TypePicker))
	if err != nil {
		t.Fatal(err)
	}

	session, err := svc.SignIn(ctx, "IN@example.com", "green123")
	if err != nil {
		t.Fatal(err)
	}
	if session.User.ID != created.User.ID || session.Token == "" {
		t.Errorf("session = %+v", session)
	}

	if _, err := svc.SignIn(ctx, "in@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "green123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v", err)
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	session, err := svc.SignUp(ctx, signUpInput("out@example.com", userModel.TypeGenerator))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.SignOut(ctx, session.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(session.Token); !errors.Is(err, ErrRevokedToken) {
		t.Errorf("Verify() after SignOut error = %v, want ErrRevokedToken", err)
	}

	fresh, err := svc.SignIn(ctx, "out@example.com", "green123")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(fresh.Token); err != nil {
		t.Errorf("new session rejected: %v", err)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	current := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	svc, _ := newService(t, clock)
	session, err := svc.SignUp(context.Background(), signUpInput("v@example.com", userModel.TypePicker))
	if err != nil {
		t.Fatal(err)
	}

	current = current.Add(2 * time.Hour)
	if _, err := svc.Verify(session.Token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expired token error = %v", err)
	}

	if _, err := svc.Verify("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token error = %v", err)
	}

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "someone",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(current.Add(time.Hour)),
		},
	})
	signed, _ := forged.SignedString([]byte("other-secret"))
	if _, err := svc.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("forged token error = %v", err)
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(memory.New(), Options{}); err == nil {
		t.Error("NewService() without a secret should fail")
	}
}
