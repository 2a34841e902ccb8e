package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var authTracer = otel.Tracer("service/auth")

const (
	maxFailedAttempts = 5
	lockDuration      = 15 * time.Minute
	bcryptCost        = 12
	tokenIssuer       = "gestao-bfa"
)

// AuthService authenticates back-office users and issues access tokens.
type AuthService struct {
	users     port.UserStore
	clock     port.Clock
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	failures map[string]*loginFailures
}

type loginFailures struct {
	count       int
	lockedUntil time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(users port.UserStore, clock port.Clock, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		clock:     clock,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		logger:    logger,
		failures:  make(map[string]*loginFailures),
	}
}

// ============================================================
// Login - POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("email", req.Email))

	now := s.clock.Now()
	if until, locked := s.lockedUntil(req.Email, now); locked {
		s.logger.Warn("login: account temporarily locked", zap.String("email", req.Email))
		return nil, &domain.ErrUnauthorized{
			Message: fmt.Sprintf("Conta temporariamente bloqueada. Tente novamente em %.0f minutos", until.Sub(now).Minutes()),
		}
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if isNotFound(err) {
			s.recordFailure(req.Email, now)
			return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.Ativo {
		return nil, &domain.ErrForbidden{Action: "usuário inativo"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailure(req.Email, now)
		s.logger.Warn("login: invalid password",
			zap.String("user_id", user.ID),
			zap.String("empresa_id", user.EmpresaID),
		)
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}
	s.clearFailures(req.Email)

	token, err := s.signAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("empresa_id", user.EmpresaID),
	)
	return &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		UserID:      user.ID,
		Nome:        user.Nome,
		EmpresaID:   user.EmpresaID,
		FilialID:    user.FilialID,
		Papel:       user.Papel,
	}, nil
}

// SeedAdmin creates the bootstrap administrator unless the e-mail is taken.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password, empresaID, filialID string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.SeedAdmin")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !isNotFound(err) {
		return fmt.Errorf("get user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:           newID(),
		Email:        email,
		Nome:         "Administrador",
		PasswordHash: string(hash),
		EmpresaID:    empresaID,
		FilialID:     filialID,
		Papel:        "admin",
		Ativo:        true,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("admin user seeded",
		zap.String("user_id", user.ID),
		zap.String("empresa_id", empresaID),
	)
	return nil
}

// ============================================================
// ValidateToken - used by middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens. An empty
// FilialID grants access to every branch of the company.
type JWTClaims struct {
	Sub       string `json:"sub"`
	EmpresaID string `json:"empresa_id"`
	FilialID  string `json:"filial_id,omitempty"`
	Papel     string `json:"papel,omitempty"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}
	if claims.EmpresaID == "" {
		return nil, &domain.ErrUnauthorized{Message: "Token sem empresa"}
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(u *domain.User, now time.Time) (string, error) {
	claims := JWTClaims{
		Sub:       u.ID,
		EmpresaID: u.EmpresaID,
		FilialID:  u.FilialID,
		Papel:     u.Papel,
		Type:      "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ---- brute force protection ----

func (s *AuthService) lockedUntil(email string, now time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.failures[email]
	if !ok || f.lockedUntil.IsZero() {
		return time.Time{}, false
	}
	if now.After(f.lockedUntil) {
		delete(s.failures, email)
		return time.Time{}, false
	}
	return f.lockedUntil, true
}

func (s *AuthService) recordFailure(email string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.failures[email]
	if !ok {
		f = &loginFailures{}
		s.failures[email] = f
	}
	f.count++
	if f.count >= maxFailedAttempts {
		f.lockedUntil = now.Add(lockDuration)
		s.logger.Warn("login: account locked after failed attempts",
			zap.String("email", email),
			zap.Int("attempts", f.count),
		)
	}
}

func (s *AuthService) clearFailures(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, email)
}
