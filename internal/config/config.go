package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL es la URL pública del servicio; se usa para autogenerar
		// los callbacks de los proveedores cuando no se configuran.
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Session struct {
		// Secret firma la cookie de sesión. Obligatorio (mínimo 32 bytes).
		Secret     string `yaml:"secret"`
		CookieName string `yaml:"cookie_name"`
		SameSite   string `yaml:"samesite"`
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"`
	} `yaml:"session"`

	Storage struct {
		// Driver: memory | redis | postgres
		Driver string `yaml:"driver"`
		Prefix string `yaml:"prefix"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Security struct {
		// SecretBoxMasterKey cifra los access tokens en reposo (base64, 32 bytes).
		// Si está vacío se usa la variable de entorno SECRETBOX_MASTER_KEY.
		SecretBoxMasterKey string `yaml:"secretbox_master_key"`
	} `yaml:"security"`

	// ───────── Provider connections ─────────
	Providers []Provider `yaml:"providers"`
}

// Provider describe una conexión de proveedor delegado.
type Provider struct {
	Name string `yaml:"name"`
	// Protocol: oauth1 | openid
	Protocol string `yaml:"protocol"`

	// CallbackURL; si vacío => <server.base_url>/auth/<name>/callback
	CallbackURL string `yaml:"callback_url"`

	// OAuth1
	ConsumerKey     string            `yaml:"consumer_key"`
	ConsumerSecret  string            `yaml:"consumer_secret"`
	RequestTokenURL string            `yaml:"request_token_url"`
	AuthorizeURL    string            `yaml:"authorize_url"`
	AccessTokenURL  string            `yaml:"access_token_url"`
	ResourceURL     string            `yaml:"resource_url"`
	IdentifierField string            `yaml:"identifier_field"`
	AttributeMap    map[string]string `yaml:"attribute_map"`
	SignatureMethod string            `yaml:"signature_method"`
	// RSAPrivateKeyPEM sólo aplica con signature_method: RSA-SHA1.
	RSAPrivateKeyPEM string `yaml:"rsa_private_key_pem"`
	SealTokens       bool   `yaml:"seal_tokens"`

	// OpenID 2.0
	ClaimedID string `yaml:"claimed_id"`
	Realm     string `yaml:"realm"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "handshake_session"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "lax"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "24h"
	}

	// Overrides por env + salvaguarda prod
	c.applyEnvOverrides()

	// Si el callback de un provider está vacío pero hay base_url ⇒ autogenerar
	base := strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	for i := range c.Providers {
		p := &c.Providers[i]
		if strings.TrimSpace(p.CallbackURL) == "" && base != "" {
			p.CallbackURL = base + "/auth/" + p.Name + "/callback"
		}
	}

	// Guardia dura: en prod la cookie viaja sólo por HTTPS.
	if strings.EqualFold(c.App.Env, "prod") {
		c.Session.Secure = true
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// SessionTTL devuelve el TTL de sesión ya parseado.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Session.TTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Validate verifica invariantes que no pueden esperar al primer request.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Session.TTL); err != nil {
		return fmt.Errorf("config: session.ttl: %w", err)
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("config: session.secret must be at least 32 bytes")
	}
	switch c.Storage.Driver {
	case "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("config: storage.redis.addr is required for the redis driver")
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("config: storage.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("config: provider without a name")
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
		switch p.Protocol {
		case "oauth1", "openid":
		default:
			return fmt.Errorf("config: provider %q: unknown protocol %q", p.Name, p.Protocol)
		}
		if p.CallbackURL == "" {
			return fmt.Errorf("config: provider %q: callback_url is required (or set server.base_url)", p.Name)
		}
	}
	return nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
// Las credenciales suelen llegar por env, nunca por YAML versionado.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Session.Secret = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_PREFIX"); ok {
		c.Storage.Prefix = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Storage.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Storage.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Storage.Redis.DB = v
	}
	if v, ok := getEnvStr("POSTGRES_DSN"); ok {
		c.Storage.Postgres.DSN = v
	}

	// SECURITY
	if v, ok := getEnvStr("SECRETBOX_MASTER_KEY"); ok {
		c.Security.SecretBoxMasterKey = v
	}
}
