package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	userModel "ecochain/models/user"
	"ecochain/store"
	"ecochain/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength matches the auth provider the clients were built against.
const MinPasswordLength = 6

var (
	ErrInvalidInput       = errors.New("invalid sign up details")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrRevokedToken       = errors.New("token has been revoked")
)

// Users is the slice of the document store identity needs.
type Users interface {
	CreateUser(ctx context.Context, u *userModel.User) error
	GetUserByEmail(ctx context.Context, email string) (*userModel.User, error)
}

// Claims carried by session tokens.
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

type Session struct {
	User      *userModel.User
	Token     string
	ExpiresAt time.Time
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
	UserType userModel.UserType
}

type Options struct {
	Secret     string
	Expiry     time.Duration
	BcryptCost int
	Now        func() time.Time
}

// Service signs users up and in and issues HS256 session tokens.
type Service struct {
	users  Users
	secret []byte
	expiry time.Duration
	cost   int
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewService(users Users, opts Options) (*Service, error) {
	if opts.Secret == "" {
		return nil, errors.New("identity: JWT secret is required")
	}
	if opts.Expiry <= 0 {
		opts.Expiry = 8 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		users:   users,
		secret:  []byte(opts.Secret),
		expiry:  opts.Expiry,
		cost:    opts.BcryptCost,
		now:     opts.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

// SignUp creates the profile and returns a session for it.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)

	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !utils.IsEmail(email):
		return nil, fmt.Errorf("%w: email address is invalid", ErrInvalidInput)
	case len(in.Password) < MinPasswordLength:
		return nil, fmt.Errorf("%w: password should be at least %d characters", ErrInvalidInput, MinPasswordLength)
	case !in.UserType.IsValid():
		return nil, fmt.Errorf("%w: user type must be %s or %s", ErrInvalidInput, userModel.TypeGenerator, userModel.TypePicker)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &userModel.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: string(hash),
		UserType:     in.UserType,
		Points:       0,
		Tier:         userModel.DefaultTier,
	}
	if u.IsPicker() {
		available := false
		u.IsAvailable = &available
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.issue(u)
}

// SignIn checks the password. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

// SignOut revokes the token until it would have expired anyway.
func (s *Service) SignOut(_ context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

// Verify validates the signature, expiry and revocation state of a token.
func (s *Service) Verify(token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Expiry is the lifetime of issued tokens.
func (s *Service) Expiry() time.Duration {
	return s.expiry
}

func (s *Service) issue(u *userModel.User) (*Session, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.expiry)
	claims := &Claims{
		UserID:   u.ID,
		Email:    u.Email,
		UserType: string(u.UserType),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// pruneLocked drops revocations whose tokens have expired. Caller holds mu.
func (s *Service) pruneLocked() {
	current := s.now()
	for id, exp := range s.revoked {
		if current.After(exp) {
			delete(s.revoked, id)
		}
	}
}
