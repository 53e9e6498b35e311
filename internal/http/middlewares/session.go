package middlewares

import (
	"net/http"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/handshake/internal/observability/logger"
)

// SessionConfig configura la cookie de sesión del navegador.
//
// La sesión no autentica al usuario: sólo ancla el estado del flujo
// (request tokens, perfiles) a un navegador concreto, para que dos
// navegadores nunca compartan slots de almacenamiento.
type SessionConfig struct {
	// Secret firma el JWT de la cookie (HS256). Obligatorio.
	Secret []byte

	// TTL de la sesión. Default: 24h.
	TTL time.Duration

	// CookieName es el nombre de la cookie. Default: "handshake_session".
	CookieName string

	// SameSite: "lax" (default), "strict" o "none". Los callbacks de los
	// proveedores llegan por navegación top-level, así que Lax alcanza.
	SameSite string

	// Secure marca la cookie como solo-HTTPS.
	Secure bool
}

type sessionClaims struct {
	SID string `json:"sid"`
	jwtv5.RegisteredClaims
}

func (c SessionConfig) cookieName() string {
	if c.CookieName != "" {
		return c.CookieName
	}
	return "handshake_session"
}

func (c SessionConfig) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return 24 * time.Hour
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// WithSession resuelve o crea la sesión del navegador e inyecta su ID en
// el contexto. Una cookie inválida o expirada se reemplaza en silencio
// por una sesión nueva.
func WithSession(cfg SessionConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if ck, err := r.Cookie(cfg.cookieName()); err == nil {
				sid = parseSession(ck.Value, cfg.Secret)
			}

			if sid == "" {
				sid = uuid.NewString()
				signed, err := signSession(sid, cfg)
				if err != nil {
					logger.From(r.Context()).Error("session cookie signing failed", logger.Err(err))
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.cookieName(),
					Value:    signed,
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: parseSameSite(cfg.SameSite),
					Expires:  time.Now().Add(cfg.ttl()).UTC(),
					MaxAge:   int(cfg.ttl().Seconds()),
				})
			}

			ctx := setSessionID(r.Context(), sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func signSession(sid string, cfg SessionConfig) (string, error) {
	now := time.Now().UTC()
	claims := sessionClaims{
		SID: sid,
		RegisteredClaims: jwtv5.RegisteredClaims{
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(cfg.ttl())),
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(cfg.Secret)
}

// parseSession devuelve el session ID o cadena vacía si el token no es
// válido. No distingue causas: cualquier fallo significa sesión nueva.
func parseSession(token string, secret []byte) string {
	var claims sessionClaims
	tk, err := jwtv5.ParseWithClaims(token, &claims, func(t *jwtv5.Token) (any, error) {
		return secret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil || !tk.Valid {
		return ""
	}
	return claims.SID
}
