package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port             int
	DBPath           string
	StoreLockTimeout time.Duration
	RedisURL         string
	JWTSecret        string
	SessionTTL       time.Duration
	AllowOrigins     []string
	DevCookies       bool
	LogLevel         string
	RateLimitPublic  RateLimitConfig
	RateLimitAuth    RateLimitConfig
	Email            EmailConfig
	Sheety           SheetyConfig
	Backup           BackupConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// EmailConfig descreve o servidor SMTP usado nos comunicados.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled indica se há servidor SMTP configurado.
func (c EmailConfig) Enabled() bool {
	return c.Host != ""
}

// SheetyConfig aponta para a planilha de alunos.
type SheetyConfig struct {
	BaseURL     string
	ProjectID   string
	AccessToken string
}

// Enabled indica se a sincronização com a planilha está disponível.
func (c SheetyConfig) Enabled() bool {
	return c.ProjectID != ""
}

// BackupConfig configura o bucket de backup do documento.
type BackupConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Enabled indica se há bucket configurado.
func (c BackupConfig) Enabled() bool {
	return c.Bucket != ""
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	return load(true)
}

// LoadTools carrega a mesma configuração sem exigir JWT_SECRET, para a CLI
// administrativa que não emite sessões.
func LoadTools() (*Config, error) {
	return load(false)
}

func load(requireSecret bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	port, err := parseIntEnv("PORT", 8080)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBPath = strings.TrimSpace(getEnv("DB_PATH", "db.json"))
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH obrigatório")
	}

	lockTimeout, err := parseDurationEnv("STORE_LOCK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	if lockTimeout <= 0 {
		return nil, errors.New("STORE_LOCK_TIMEOUT deve ser positivo")
	}
	cfg.StoreLockTimeout = lockTimeout

	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if requireSecret && len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	sessionTTL, err := parseDurationEnv("SESSION_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = sessionTTL

	cfg.AllowOrigins = splitList(getEnv("ALLOW_ORIGINS", ""))
	cfg.DevCookies = parseBoolEnv("DEV_COOKIES")
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info")))

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 1, Burst: 5}

	emailPort, err := parseIntEnv("EMAIL_PORT", 587)
	if err != nil || emailPort <= 0 {
		return nil, errors.New("EMAIL_PORT inválida")
	}
	cfg.Email = EmailConfig{
		Host:     strings.TrimSpace(getEnv("EMAIL_HOST", "")),
		Port:     emailPort,
		User:     strings.TrimSpace(getEnv("EMAIL_USER", "")),
		Password: getEnv("EMAIL_PASSWORD", ""),
		From:     strings.TrimSpace(getEnv("EMAIL_FROM", "")),
	}
	if cfg.Email.From == "" {
		cfg.Email.From = cfg.Email.User
	}

	cfg.Sheety = SheetyConfig{
		BaseURL:     strings.TrimRight(strings.TrimSpace(getEnv("SHEETY_BASE_URL", "https://api.sheety.co")), "/"),
		ProjectID:   strings.TrimSpace(getEnv("SHEETY_PROJECT_ID", "")),
		AccessToken: strings.TrimSpace(getEnv("SHEETY_ACCESS_TOKEN", "")),
	}

	cfg.Backup = BackupConfig{
		Bucket:    strings.TrimSpace(getEnv("BACKUP_S3_BUCKET", "")),
		Region:    strings.TrimSpace(getEnv("BACKUP_S3_REGION", "us-east-1")),
		Endpoint:  strings.TrimSpace(getEnv("BACKUP_S3_ENDPOINT", "")),
		AccessKey: strings.TrimSpace(getEnv("BACKUP_S3_ACCESS_KEY", "")),
		SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
		Prefix:    strings.Trim(strings.TrimSpace(getEnv("BACKUP_S3_PREFIX", "backups")), "/"),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseIntEnv(key string, def int) (int, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	return strconv.Atoi(val)
}

func parseBoolEnv(key string) bool {
	val, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, "")))
	return err == nil && val
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}
