package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server  string        `envconfig:"SERVER" default:"http://localhost:8080"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`
	// PARTYCTL_TOKEN matches the server ADMIN_TOKEN and reveals room codes
	Token string `envconfig:"TOKEN"`
	// PARTYCTL_COLOURS toggles coloured phases in tables
	Colours bool `envconfig:"COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("partyctl", &cfg)
	return cfg, err
}
