package internal

import (
	"fmt"
	"net/url"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Port            int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	LogLevel        string        `env:"LOG_LEVEL,default=info" validate:"oneof=trace debug info warn error"`
	LogPretty       bool          `env:"LOG_PRETTY,default=false"`
	PublicURL       string        `env:"PUBLIC_URL,default=http://localhost:8080" validate:"url"`
	RoomIdleTimeout time.Duration `env:"ROOM_IDLE_TIMEOUT,default=30m" validate:"gt=0"`
	ReapInterval    time.Duration `env:"REAP_INTERVAL,default=1m" validate:"gt=0"`
	RateLimit       int           `env:"RATE_LIMIT,default=6" validate:"min=1"`
	RateWindow      time.Duration `env:"RATE_WINDOW,default=10s" validate:"gt=0"`
	NameReconnect   bool          `env:"NAME_RECONNECT,default=true"`
	DefaultGame     string        `env:"DEFAULT_GAME,default=alibi" validate:"required"`
	EnabledGames    string        `env:"ENABLED_GAMES"`
	TriviaBank      string        `env:"TRIVIA_BANK"`
	ArchiveQueue    int           `env:"ARCHIVE_QUEUE,default=64" validate:"min=1"`
	ArchiveTimeout  time.Duration `env:"ARCHIVE_TIMEOUT,default=5s" validate:"gt=0"`
	// ADMIN_TOKEN unlocks room codes on /api/rooms; empty keeps them blank
	AdminToken string `env:"ADMIN_TOKEN"`

	DBHost     string `env:"BLUEPRINT_DB_HOST"`
	DBPort     int    `env:"BLUEPRINT_DB_PORT,default=5432"`
	DBDatabase string `env:"BLUEPRINT_DB_DATABASE,default=partybox"`
	DBUsername string `env:"BLUEPRINT_DB_USERNAME,default=postgres"`
	DBPassword string `env:"BLUEPRINT_DB_PASSWORD"`
	DBSchema   string `env:"BLUEPRINT_DB_SCHEMA,default=public"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ArchiveEnabled reports whether a database was configured.
func (c Config) ArchiveEnabled() bool {
	return c.DBHost != ""
}

func (c Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUsername, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     c.DBDatabase,
		RawQuery: url.Values{"sslmode": {"disable"}, "search_path": {c.DBSchema}}.Encode(),
	}
	return u.String()
}

func (c Config) JoinURL(code string) string {
	return fmt.Sprintf("%s/?code=%s", c.PublicURL, url.QueryEscape(code))
}
