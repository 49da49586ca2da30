package storageless

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/storageless/jwt"
)

// Environment variables read by LoadConfigFromEnv.
const (
	EnvCookieName     = "SLSESSION_COOKIE_NAME"
	EnvTTL            = "SLSESSION_TTL"
	EnvSigningMethod  = "SLSESSION_SIGNING_METHOD"
	EnvSecret         = "SLSESSION_SECRET"
	EnvPrivateKeyFile = "SLSESSION_PRIVATE_KEY_FILE"
	EnvPublicKeyFile  = "SLSESSION_PUBLIC_KEY_FILE"
	EnvCookieSecure   = "SLSESSION_COOKIE_SECURE"
	EnvCookieDomain   = "SLSESSION_COOKIE_DOMAIN"
)

// LoadConfigFromEnv starts from DefaultConfig and applies SLSESSION_*
// variables. SLSESSION_TTL accepts a Go duration ("20m") or whole seconds
// ("1200"). For rs256 the key files are read from disk. The result is not
// validated.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(os.Getenv, os.ReadFile)
}

func loadConfig(getenv func(string) string, readFile func(string) ([]byte, error)) (Config, error) {
	cfg := defaultConfig()

	if v := strings.TrimSpace(getenv(EnvCookieName)); v != "" {
		cfg.CookieName = v
	}

	if v := strings.TrimSpace(getenv(EnvTTL)); v != "" {
		d, err := parseTTL(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvTTL, err)
		}
		cfg.TTL = d
	}

	if v := strings.TrimSpace(getenv(EnvSigningMethod)); v != "" {
		cfg.SigningMethod = jwt.SigningMethod(strings.ToLower(v))
	}

	switch cfg.SigningMethod {
	case jwt.MethodRS256:
		if path := getenv(EnvPrivateKeyFile); path != "" {
			b, err := readFile(path)
			if err != nil {
				return Config{}, fmt.Errorf("read %s: %w", EnvPrivateKeyFile, err)
			}
			cfg.SigningKey = b
		}
		if path := getenv(EnvPublicKeyFile); path != "" {
			b, err := readFile(path)
			if err != nil {
				return Config{}, fmt.Errorf("read %s: %w", EnvPublicKeyFile, err)
			}
			cfg.VerificationKey = b
		}
	default:
		if v := getenv(EnvSecret); v != "" {
			cfg.SigningKey = []byte(v)
		}
	}

	if v := strings.TrimSpace(getenv(EnvCookieSecure)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvCookieSecure, err)
		}
		cfg.Cookie.Secure = b
	}

	if v := strings.TrimSpace(getenv(EnvCookieDomain)); v != "" {
		cfg.Cookie.Domain = v
	}

	return cfg, nil
}

func parseTTL(v string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("ttl must be > 0")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("ttl must be > 0")
	}
	return d, nil
}
