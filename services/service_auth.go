package services

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"blog-backend/internal/apperr"
	"blog-backend/internal/repository"
	"blog-backend/model"
)

type AuthService struct {
	users      repository.UserStore
	jwtSecret  []byte
	jwtTTL     time.Duration
	bcryptCost int
}

func NewAuthService(users repository.UserStore, secret string, ttl time.Duration, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		jwtSecret:  []byte(secret),
		jwtTTL:     ttl,
		bcryptCost: bcryptCost,
	}
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (string, *model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		return "", nil, apperr.New(apperr.InvalidInput, "username and email required")
	}
	if !strings.Contains(email, "@") {
		return "", nil, apperr.New(apperr.InvalidInput, "invalid email")
	}
	if len(password) < 6 {
		return "", nil, apperr.New(apperr.InvalidInput, "password must be at least 6 characters")
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return "", nil, err
	}
	if exists {
		return "", nil, apperr.New(apperr.Conflict, "username or email already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.Unavailable, "hash password", err)
	}

	user := model.NewUser(username, email, string(hash))
	// The unique indexes close the check-then-insert race.
	if err := s.users.Insert(ctx, user); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return "", nil, apperr.New(apperr.Conflict, "username or email already taken")
		}
		return "", nil, err
	}

	token, err := s.SignToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return "", nil, apperr.New(apperr.Unauthorized, "invalid credentials")
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, apperr.New(apperr.Unauthorized, "invalid credentials")
	}

	token, err := s.SignToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) SignToken(user *model.User) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", apperr.Wrap(apperr.Unavailable, "sign token", err)
	}
	return signed, nil
}

// VerifyToken returns the subject (user id hex) of a valid HS256 token.
func (s *AuthService) VerifyToken(tokenStr string) (string, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, apperr.New(apperr.Unauthorized, "unexpected signing method")
			}
			return s.jwtSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", apperr.New(apperr.Unauthorized, "invalid token")
	}
	return claims.Subject, nil
}

// ResolveCaller maps a bearer token to the acting identity, loading the user
// so revoked accounts drop out immediately.
func (s *AuthService) ResolveCaller(ctx context.Context, tokenStr string) (*model.User, error) {
	sub, err := s.VerifyToken(tokenStr)
	if err != nil {
		return nil, err
	}
	id, err := bson.ObjectIDFromHex(sub)
	if err != nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid token subject")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.Unauthorized, "user not found")
		}
		return nil, err
	}
	return user, nil
}
