package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultRoles is the fixed role set. Clients must use the same names or
// their claims get rejected as invalid.
var DefaultRoles = []string{"warrior", "mage", "rogue", "cleric", "bard"}

type Config struct {
	Port      int
	Roles     []string
	StaticDir string
}

// Load reads .env if present, then the environment, falling back to
// defaults. A malformed PORT falls back rather than failing startup.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:      3000,
		Roles:     DefaultRoles,
		StaticDir: "public",
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			cfg.Port = p
		}
	}

	if v := os.Getenv("DICE_ROLES"); v != "" {
		roles := []string{}
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}
		if len(roles) > 0 {
			cfg.Roles = roles
		}
	}

	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}

	return cfg
}
