package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fernandoldf/representa/internal/auth"
	"github.com/fernandoldf/representa/internal/repo"
	"github.com/fernandoldf/representa/internal/representante"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")

	// ErrSessionInvalid indica sessão expirada, revogada ou adulterada.
	ErrSessionInvalid = errors.New("sessão inválida")
)

type representanteFinder interface {
	Get(ctx context.Context, email string) (*representante.Representante, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra login, validação e encerramento de sessões.
// Sem redis as sessões são apenas JWT assinados e expiram pelo TTL.
type AuthService struct {
	reps  representanteFinder
	redis redisCommander
	jwt   *auth.JWTManager
}

// NewAuthService cria novo serviço. redisClient pode ser nil.
func NewAuthService(reps representanteFinder, redisClient *redis.Client, jwtMgr *auth.JWTManager) *AuthService {
	s := &AuthService{reps: reps, jwt: jwtMgr}
	if redisClient != nil {
		s.redis = redisClient
	}
	return s
}

// LoginResult representa o retorno do login.
type LoginResult struct {
	Token         string
	ExpiresAt     time.Time
	Representante *representante.Representante
}

// Login verifica email e senha e emite um token de sessão.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	rep, err := s.reps.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: representante não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hash := rep.SenhaHash()
	if hash == "" {
		log.Warn().Str("representante", rep.Email).Msg("login: representante sem senha")
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.Verify(password, hash)
	if err != nil {
		log.Warn().Err(err).Msg("login: verify password failed")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Str("representante", rep.Email).Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateSessionToken(rep.Email, rep.Nome)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, auth.SessionRedisKey(token.ID), rep.Email, s.jwt.TTL()).Err(); err != nil {
			return nil, err
		}
	}

	log.Info().Str("representante", rep.Email).Msg("login")
	return &LoginResult{Token: token.Value, ExpiresAt: token.ExpiresAt, Representante: rep}, nil
}

// Validate confere assinatura e, com redis, se a sessão não foi encerrada.
func (s *AuthService) Validate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwt.ParseAndValidate(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if s.redis == nil {
		return claims, nil
	}

	email, err := s.redis.Get(ctx, auth.SessionRedisKey(claims.ID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if !strings.EqualFold(email, claims.Email()) {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}

// Logout encerra a sessão do token. Tokens inválidos são ignorados.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.redis == nil || token == "" {
		return nil
	}
	claims, err := s.jwt.ParseAndValidate(token)
	if err != nil {
		return nil
	}
	return s.redis.Del(ctx, auth.SessionRedisKey(claims.ID)).Err()
}
