package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionAudience identifica tokens emitidos para o painel do representante.
const SessionAudience = "representante"

// Claims representa as informações presentes no token de sessão.
type Claims struct {
	Nome string `json:"nome,omitempty"`
	jwt.RegisteredClaims
}

// Email devolve o email do representante (subject do token).
func (c *Claims) Email() string {
	return c.Subject
}

// JWTManager encapsula geração e validação de tokens de sessão.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTManager cria o gerenciador com segredo e TTL configurados.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl}
}

// TTL devolve a validade dos tokens emitidos.
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// SessionToken é um token assinado e seus metadados.
type SessionToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// GenerateSessionToken cria um JWT HS256 para o representante.
func (m *JWTManager) GenerateSessionToken(email, nome string) (*SessionToken, error) {
	now := time.Now().UTC()
	expires := now.Add(m.ttl)
	jti := uuid.NewString()

	claims := Claims{
		Nome: nome,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Audience:  jwt.ClaimStrings{SessionAudience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, err
	}

	return &SessionToken{Value: signed, ID: jti, ExpiresAt: expires}, nil
}

// ParseAndValidate verifica assinatura, audience e expiração.
func (m *JWTManager) ParseAndValidate(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(SessionAudience),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("token inválido")
	}

	return claims, nil
}
