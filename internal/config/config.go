package config

import "os"

type Config struct {
	Auth      AuthConfig
	Directory DirectoryConfig
	Postgres  PostgresConfig
	Server    ServerConfig
}

type AuthConfig struct {
	JWTSecret      string
	JWTAccessTTL   string
	JWTRefreshTTL  string
	AllowSignup    string
	CookieSecure   string
	CookieSameSite string
	CookieDomain   string
	CookiePath     string
}

// DirectoryConfig describes the external membership directory: the REST
// base URL, the optional service credential used for authoritative member
// lookups, and the OAuth2 application used for delegated user tokens
// (account linking and refresh).
type DirectoryConfig struct {
	Provider     string
	BaseURL      string
	ServiceToken string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins string
}

func Load() Config {
	return Config{
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			JWTAccessTTL:   getenv("JWT_ACCESS_TTL", "15m"),
			JWTRefreshTTL:  getenv("JWT_REFRESH_TTL", "720h"),
			AllowSignup:    os.Getenv("ALLOW_SIGNUP"),
			CookieSecure:   os.Getenv("AUTH_COOKIE_SECURE"),
			CookieSameSite: os.Getenv("AUTH_COOKIE_SAMESITE"),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			CookiePath:     os.Getenv("AUTH_COOKIE_PATH"),
		},
		Directory: DirectoryConfig{
			Provider:     getenv("DIRECTORY_PROVIDER", "discord"),
			BaseURL:      getenv("DIRECTORY_API_URL", "https://discord.com/api/v10"),
			ServiceToken: os.Getenv("DIRECTORY_SERVICE_TOKEN"),
			ClientID:     os.Getenv("DIRECTORY_CLIENT_ID"),
			ClientSecret: os.Getenv("DIRECTORY_CLIENT_SECRET"),
			AuthURL:      getenv("DIRECTORY_AUTH_URL", "https://discord.com/oauth2/authorize"),
			TokenURL:     getenv("DIRECTORY_TOKEN_URL", "https://discord.com/api/v10/oauth2/token"),
			RedirectURL:  os.Getenv("DIRECTORY_REDIRECT_URL"),
			Scopes:       getenv("DIRECTORY_SCOPES", "identify guilds guilds.members.read"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Server: ServerConfig{
			Addr:           getenv("LISTEN_ADDR", ":8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
