package config

import (
	"net/http"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "STOREFRONT"
	keyPort               = "PORT"
	keyDSN                = "DSN"
	keyMigrations         = "MIGRATIONS"
	keyRedisAddr          = "REDIS_ADDR"
	keyRedisPassword      = "REDIS_PASSWORD"
	keyLocalStoreDSN      = "LOCAL_STORE_DSN"
	keyMailgunDomain      = "MAILGUN_DOMAIN"
	keyMailgunAPIKey      = "MAILGUN_API_KEY"
	keyMailgunHost        = "MAILGUN_HOST"
	keyStripeKey          = "STRIPE_KEY"
	keyStripePublicKey    = "STRIPE_PUBLIC_KEY"
	keyGoogleClientID     = "GOOGLE_CLIENT_ID"
	keyGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	keyGoogleRedirectURL  = "GOOGLE_REDIRECT_URL"
	keyCookieDomain       = "COOKIE_DOMAIN"
	keyCookieSecure       = "COOKIE_SECURE"
	keyCookieSameSite     = "COOKIE_SAMESITE"
	keyAllowedOrigins     = "ALLOWED_ORIGINS"
	keyAdminEmail         = "ADMIN_EMAIL"
	keyCurrency           = "CURRENCY"
	keyStoreName          = "STORE_NAME"
	keyConfigSecret       = "CONFIG_SECRET"
	keyConfigURL          = "CONFIG_URL"
	keyVerifyURL          = "VERIFY_URL"
	keySuccessURL         = "SUCCESS_URL"
	keyCancelURL          = "CANCEL_URL"
	keyIdentityExpiration = "IDENTITY_EXPIRATION"
	keyCheckoutExpiration = "CHECKOUT_EXPIRATION"
	keySignInRate         = "SIGN_IN_RATE"
	keySignInBurst        = "SIGN_IN_BURST"
)

func Load() *Config {
	c := &Config{v: viper.New()}
	c.v.SetEnvPrefix(envPrefix)
	c.v.AutomaticEnv()
	c.defaults()

	return c
}

type Config struct {
	v *viper.Viper
}

func (c *Config) defaults() {
	c.v.SetDefault(keyPort, 8080)
	c.v.SetDefault(keyDSN, "host=localhost user=postgres password=password dbname=postgres port=5432 sslmode=disable TimeZone=UTC")
	c.v.SetDefault(keyMigrations, "file:///db/migrations")
	c.v.SetDefault(keyRedisAddr, "redis:6379")
	c.v.SetDefault(keyRedisPassword, "")
	c.v.SetDefault(keyLocalStoreDSN, "file:storefront-local.db")
	c.v.SetDefault(keyMailgunDomain, "mg.storefront.test")
	c.v.SetDefault(keyMailgunAPIKey, "")
	c.v.SetDefault(keyMailgunHost, "http://localhost:8080")
	c.v.SetDefault(keyStripeKey, "")
	c.v.SetDefault(keyStripePublicKey, "")
	c.v.SetDefault(keyGoogleClientID, "")
	c.v.SetDefault(keyGoogleClientSecret, "")
	c.v.SetDefault(keyGoogleRedirectURL, "http://localhost:8080/auth/google")
	c.v.SetDefault(keyCookieDomain, "localhost")
	c.v.SetDefault(keyCookieSecure, false)
	c.v.SetDefault(keyCookieSameSite, "lax")
	c.v.SetDefault(keyAllowedOrigins, []string{"http://localhost:3000"})
	c.v.SetDefault(keyAdminEmail, "")
	c.v.SetDefault(keyCurrency, "usd")
	c.v.SetDefault(keyStoreName, "Storefront")
	c.v.SetDefault(keyConfigSecret, "")
	c.v.SetDefault(keyConfigURL, "http://localhost:8080")
	c.v.SetDefault(keyVerifyURL, "http://localhost:8080")
	c.v.SetDefault(keySuccessURL, "http://localhost:3000/checkout/success")
	c.v.SetDefault(keyCancelURL, "http://localhost:3000/checkout/cancel")
	c.v.SetDefault(keyIdentityExpiration, 14*24*time.Hour)
	c.v.SetDefault(keyCheckoutExpiration, time.Hour)
	c.v.SetDefault(keySignInRate, 0.2)
	c.v.SetDefault(keySignInBurst, 5)
}

func (c Config) Port() int               { return c.v.GetInt(keyPort) }
func (c Config) DSN() string             { return c.v.GetString(keyDSN) }
func (c Config) Migrations() string      { return c.v.GetString(keyMigrations) }
func (c Config) RedisAddr() string       { return c.v.GetString(keyRedisAddr) }
func (c Config) RedisPassword() string   { return c.v.GetString(keyRedisPassword) }
func (c Config) LocalStoreDSN() string   { return c.v.GetString(keyLocalStoreDSN) }
func (c Config) MailgunDomain() string   { return c.v.GetString(keyMailgunDomain) }
func (c Config) MailgunAPIKey() string   { return c.v.GetString(keyMailgunAPIKey) }
func (c Config) MailgunHost() string     { return c.v.GetString(keyMailgunHost) }
func (c Config) StripeKey() string       { return c.v.GetString(keyStripeKey) }
func (c Config) StripePublicKey() string { return c.v.GetString(keyStripePublicKey) }
func (c Config) GoogleClientID() string  { return c.v.GetString(keyGoogleClientID) }
func (c Config) GoogleSecret() string    { return c.v.GetString(keyGoogleClientSecret) }
func (c Config) GoogleRedirectURL() string {
	return c.v.GetString(keyGoogleRedirectURL)
}
func (c Config) CookieDomain() string     { return c.v.GetString(keyCookieDomain) }
func (c Config) CookieSecure() bool       { return c.v.GetBool(keyCookieSecure) }
func (c Config) AllowedOrigins() []string { return c.v.GetStringSlice(keyAllowedOrigins) }
func (c Config) AdminEmail() string       { return c.v.GetString(keyAdminEmail) }
func (c Config) Currency() string         { return c.v.GetString(keyCurrency) }
func (c Config) StoreName() string        { return c.v.GetString(keyStoreName) }
func (c Config) ConfigSecret() []byte     { return []byte(c.v.GetString(keyConfigSecret)) }
func (c Config) ConfigURL() string        { return c.v.GetString(keyConfigURL) }
func (c Config) VerifyURL() string        { return c.v.GetString(keyVerifyURL) }
func (c Config) SuccessURL() string       { return c.v.GetString(keySuccessURL) }
func (c Config) CancelURL() string        { return c.v.GetString(keyCancelURL) }
func (c Config) SignInRate() float64      { return c.v.GetFloat64(keySignInRate) }
func (c Config) SignInBurst() int         { return c.v.GetInt(keySignInBurst) }
func (c Config) IdentityExpiration() time.Duration {
	return c.v.GetDuration(keyIdentityExpiration)
}
func (c Config) CheckoutExpiration() time.Duration {
	return c.v.GetDuration(keyCheckoutExpiration)
}

func (c Config) CookieSameSite() http.SameSite {
	var sameSite http.SameSite
	switch c.v.GetString(keyCookieSameSite) {
	case "off":
		sameSite = http.SameSiteDefaultMode
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	default:
		panic("unrecognized Same-Site cookie configuration value")
	}
	return sameSite
}
