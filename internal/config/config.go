package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
		ReconnectWait string `yaml:"reconnect_wait"`
	} `yaml:"nats"`
	Match struct {
		QuestionCount     int    `yaml:"question_count"`
		Turn              string `yaml:"turn"`
		Reveal            string `yaml:"reveal"`
		DefaultDifficulty string `yaml:"default_difficulty"`
	} `yaml:"match"`
	Reaper struct {
		Interval string `yaml:"interval"`
		Grace    string `yaml:"grace"`
	} `yaml:"reaper"`
	Questions struct {
		TTL  string `yaml:"ttl"`
		Seed int64  `yaml:"seed"`
	} `yaml:"questions"`
	Roster struct {
		Eligible []string `yaml:"eligible"`
	} `yaml:"roster"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
}

// Load reads YAML config from path, then applies DUEL_* environment
// overrides. A missing file is not an error; env and defaults still apply.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Port, "DUEL_PORT")
	set(&c.Redis.Addr, "DUEL_REDIS_ADDR")
	set(&c.Redis.Password, "DUEL_REDIS_PASSWORD")
	set(&c.Postgres.URL, "DUEL_POSTGRES_URL")
	set(&c.NATS.URL, "DUEL_NATS_URL")
	set(&c.Logging.Level, "DUEL_LOG_LEVEL")
	if v := getenv("DUEL_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := getenv("DUEL_ROSTER"); v != "" {
		c.Roster.Eligible = nil
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.Roster.Eligible = append(c.Roster.Eligible, id)
			}
		}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
