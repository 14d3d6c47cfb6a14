package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Cookie CookieConfig
	IdP    IdPConfig
	MFA    MFAConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// DBConfig is optional. When Host is empty the audit trail stays in memory.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. When Host is empty MFA verify attempts are not capped.
type RedisConfig struct {
	Host string
	Port int
}

// CookieConfig describes the refresh-token cookie.
// Secure is derived from APP_ENV, it is not read from env.
type CookieConfig struct {
	Name   string
	Path   string
	MaxAge time.Duration
	Secure bool
}

const (
	ProviderCognito = "cognito"
	ProviderFake    = "fake"
)

type IdPConfig struct {
	Provider string

	CognitoRegion     string
	CognitoUserPoolID string
	CognitoClientID   string

	// VerifyIDToken enables JWKS signature verification of ID tokens.
	VerifyIDToken bool

	FakeSecret    string
	FakeUsersFile string
}

type MFAConfig struct {
	MaxVerifyAttempts int
	AttemptWindow     time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Cookie.Name = strings.TrimSpace(os.Getenv("COOKIE_NAME"))
	c.Cookie.Path = strings.TrimSpace(os.Getenv("COOKIE_PATH"))
	c.Cookie.MaxAge = mustDuration("COOKIE_MAX_AGE")

	c.IdP.Provider = strings.TrimSpace(os.Getenv("IDP_PROVIDER"))
	c.IdP.CognitoRegion = strings.TrimSpace(os.Getenv("COGNITO_REGION"))
	c.IdP.CognitoUserPoolID = strings.TrimSpace(os.Getenv("COGNITO_USER_POOL_ID"))
	c.IdP.CognitoClientID = strings.TrimSpace(os.Getenv("COGNITO_CLIENT_ID"))
	c.IdP.VerifyIDToken = optionalBool("IDP_VERIFY_ID_TOKEN")
	c.IdP.FakeSecret = os.Getenv("FAKE_IDP_SECRET")
	c.IdP.FakeUsersFile = strings.TrimSpace(os.Getenv("FAKE_IDP_USERS_FILE"))

	if v := strings.TrimSpace(os.Getenv("MFA_MAX_VERIFY_ATTEMPTS")); v != "" {
		n, err := mustInt("MFA_MAX_VERIFY_ATTEMPTS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.MFA.MaxVerifyAttempts = n
	}
	c.MFA.AttemptWindow = mustDuration("MFA_ATTEMPT_WINDOW")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host != "" {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Cookie.Name == "" {
		c.Cookie.Name = "refresh_token"
	}
	if c.Cookie.Path == "" {
		c.Cookie.Path = "/api/auth"
	}
	if c.Cookie.MaxAge <= 0 {
		c.Cookie.MaxAge = 30 * 24 * time.Hour
	}
	c.Cookie.Secure = c.IsProduction()

	switch c.IdP.Provider {
	case "":
		errs = append(errs, errors.New("IDP_PROVIDER is required"))
	case ProviderCognito:
		if c.IdP.CognitoRegion == "" {
			errs = append(errs, errors.New("COGNITO_REGION is required"))
		}
		if c.IdP.CognitoClientID == "" {
			errs = append(errs, errors.New("COGNITO_CLIENT_ID is required"))
		}
		if c.IdP.VerifyIDToken && c.IdP.CognitoUserPoolID == "" {
			errs = append(errs, errors.New("COGNITO_USER_POOL_ID is required when IDP_VERIFY_ID_TOKEN is set"))
		}
	case ProviderFake:
		if c.IsProduction() {
			errs = append(errs, errors.New("IDP_PROVIDER=fake is not allowed in production"))
		}
		if c.IdP.FakeSecret == "" {
			errs = append(errs, errors.New("FAKE_IDP_SECRET is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("IDP_PROVIDER must be one of cognito, fake, got %q", c.IdP.Provider))
	}

	if c.MFA.MaxVerifyAttempts <= 0 {
		c.MFA.MaxVerifyAttempts = 5
	}
	if c.MFA.AttemptWindow <= 0 {
		c.MFA.AttemptWindow = 15 * time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) HasPostgres() bool { return c.DB.Host != "" }

func (c Config) HasRedis() bool { return c.Redis.Host != "" }

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// CognitoIssuer is the OIDC issuer URL of the configured user pool.
func (c IdPConfig) CognitoIssuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.CognitoRegion, c.CognitoUserPoolID)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func optionalBool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && b
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
