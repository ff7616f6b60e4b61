package auth

import "fmt"

// SessionCookieName é o cookie HttpOnly que carrega o token de sessão.
const SessionCookieName = "representa_sessao"

// SessionRedisKey monta a chave que marca uma sessão como ativa.
func SessionRedisKey(jti string) string {
	return fmt.Sprintf("sessao:%s", jti)
}
