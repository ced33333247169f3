package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fydp-portal/internal/logger"
	"gopkg.in/yaml.v3"
)

// loadEnv читает .env только вне production (в контейнере/prod конфиг только из env).
func loadEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		path := dir + "/.env"
		f, err := os.Open(path)
		if err == nil {
			loadEnvFrom(f)
			f.Close()
			return
		}
		parent := strings.TrimSuffix(dir, "/")
		if idx := strings.LastIndex(parent, "/"); idx <= 0 {
			return
		} else {
			dir = parent[:idx]
			if dir == "" {
				dir = "/"
			}
		}
	}
}

func loadEnvFrom(f *os.File) {
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		if len(val) >= 2 && (val[0] == '"' && val[len(val)-1] == '"' || val[0] == '\'' && val[len(val)-1] == '\'') {
			val = val[1 : len(val)-1]
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// DemoConfig - поведение мок-бэкенда: задержки и доля случайных отказов.
// Это не функциональные требования, а имитация сети; в тестах всё обнуляется.
type DemoConfig struct {
	ListDelay        time.Duration
	InviteDelay      time.Duration
	CancelDelay      time.Duration
	FinalizeDelay    time.Duration
	ChatDelay        time.Duration
	InviteFailRate   float64
	CancelFailRate   float64
	FinalizeFailRate float64
	StudentCount     int
	Seed             int64
}

// Config содержит настройки клиента портала и демо-бэкенда.
// Приоритет: переменные окружения > YAML-файл > значения по умолчанию.
type Config struct {
	// Клиент
	APIBaseURL  string
	HTTPTimeout time.Duration // 0 без таймаута, отмена только через context
	Profile     string

	// Хранилище учётных данных
	CredentialStore string // "memory" | "redis" | "file"
	RedisURL        string
	CredentialFile  string
	CredentialTTL   time.Duration

	// Формирование группы
	MinGroupInvites int
	PageSize        int

	// Демо-сервер
	ServerAddr         string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins string
	Demo               DemoConfig

	// Логирование
	LogLevel string
}

// yamlConfig - промежуточная структура для парсинга YAML (длительности в секундах/миллисекундах).
type yamlConfig struct {
	APIBaseURL         string   `yaml:"api_base_url"`
	HTTPTimeout        int      `yaml:"http_timeout"`
	Profile            string   `yaml:"profile"`
	CredentialStore    string   `yaml:"credential_store"`
	RedisURL           string   `yaml:"redis_url"`
	CredentialFile     string   `yaml:"credential_file"`
	CredentialTTLHours int      `yaml:"credential_ttl_hours"`
	MinGroupInvites    int      `yaml:"min_group_invites"`
	PageSize           int      `yaml:"page_size"`
	ServerAddr         string   `yaml:"server_addr"`
	ReadTimeout        int      `yaml:"read_timeout"`
	WriteTimeout       int      `yaml:"write_timeout"`
	IdleTimeout        int      `yaml:"idle_timeout"`
	CORSAllowedOrigins string   `yaml:"cors_allowed_origins"`
	LogLevel           string   `yaml:"log_level"`
	Demo               yamlDemo `yaml:"demo"`
}

type yamlDemo struct {
	ListDelayMS      int     `yaml:"list_delay_ms"`
	InviteDelayMS    int     `yaml:"invite_delay_ms"`
	CancelDelayMS    int     `yaml:"cancel_delay_ms"`
	FinalizeDelayMS  int     `yaml:"finalize_delay_ms"`
	ChatDelayMS      int     `yaml:"chat_delay_ms"`
	InviteFailRate   float64 `yaml:"invite_fail_rate"`
	CancelFailRate   float64 `yaml:"cancel_fail_rate"`
	FinalizeFailRate float64 `yaml:"finalize_fail_rate"`
	StudentCount     int     `yaml:"student_count"`
	Seed             int64   `yaml:"seed"`
}

func defaults() yamlConfig {
	return yamlConfig{
		APIBaseURL:         "http://localhost:8000",
		Profile:            "default",
		CredentialStore:    "memory",
		RedisURL:           "redis://localhost:6379",
		CredentialTTLHours: 24,
		MinGroupInvites:    2,
		PageSize:           20,
		ServerAddr:         ":8000",
		ReadTimeout:        15,
		WriteTimeout:       15,
		IdleTimeout:        60,
		CORSAllowedOrigins: "*",
		LogLevel:           "info",
		Demo: yamlDemo{
			ListDelayMS:      800,
			InviteDelayMS:    600,
			CancelDelayMS:    500,
			FinalizeDelayMS:  1000,
			ChatDelayMS:      1000,
			InviteFailRate:   0.05,
			CancelFailRate:   0.03,
			FinalizeFailRate: 0.08,
			StudentCount:     150,
			Seed:             1,
		},
	}
}

// Load загружает конфигурацию.
// Сначала подгружаются переменные из .env (если есть), затем YAML и env (env имеет приоритет).
func Load() *Config {
	loadEnv()
	yc := defaults()

	// CONFIG_PATH → config/portal.yaml
	paths := []string{os.Getenv("CONFIG_PATH"), "config/portal.yaml"}
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &yc); err != nil {
			logger.Errorf("config: ошибка парсинга %s: %v (используются значения по умолчанию)", path, err)
			yc = defaults()
		} else {
			logger.Infof("config: загружен %s", path)
		}
		break
	}
	return fromYAML(yc)
}

func fromYAML(yc yamlConfig) *Config {
	cfg := &Config{
		APIBaseURL:         strings.TrimSuffix(envStr("PORTAL_API_URL", yc.APIBaseURL), "/"),
		HTTPTimeout:        time.Duration(envInt("HTTP_TIMEOUT", yc.HTTPTimeout)) * time.Second,
		Profile:            envStr("PORTAL_PROFILE", yc.Profile),
		CredentialStore:    envStr("CREDENTIAL_STORE", yc.CredentialStore),
		RedisURL:           envStr("REDIS_URL", yc.RedisURL),
		CredentialFile:     envStr("CREDENTIAL_FILE", yc.CredentialFile),
		CredentialTTL:      time.Duration(envInt("CREDENTIAL_TTL_HOURS", yc.CredentialTTLHours)) * time.Hour,
		MinGroupInvites:    envInt("MIN_GROUP_INVITES", yc.MinGroupInvites),
		PageSize:           envInt("PAGE_SIZE", yc.PageSize),
		ServerAddr:         envStr("SERVER_ADDR", yc.ServerAddr),
		ReadTimeout:        time.Duration(envInt("READ_TIMEOUT", yc.ReadTimeout)) * time.Second,
		WriteTimeout:       time.Duration(envInt("WRITE_TIMEOUT", yc.WriteTimeout)) * time.Second,
		IdleTimeout:        time.Duration(envInt("IDLE_TIMEOUT", yc.IdleTimeout)) * time.Second,
		CORSAllowedOrigins: envStr("CORS_ALLOWED_ORIGINS", yc.CORSAllowedOrigins),
		LogLevel:           envStr("LOG_LEVEL", yc.LogLevel),
		Demo: DemoConfig{
			ListDelay:        time.Duration(envInt("DEMO_LIST_DELAY_MS", yc.Demo.ListDelayMS)) * time.Millisecond,
			InviteDelay:      time.Duration(envInt("DEMO_INVITE_DELAY_MS", yc.Demo.InviteDelayMS)) * time.Millisecond,
			CancelDelay:      time.Duration(envInt("DEMO_CANCEL_DELAY_MS", yc.Demo.CancelDelayMS)) * time.Millisecond,
			FinalizeDelay:    time.Duration(envInt("DEMO_FINALIZE_DELAY_MS", yc.Demo.FinalizeDelayMS)) * time.Millisecond,
			ChatDelay:        time.Duration(envInt("DEMO_CHAT_DELAY_MS", yc.Demo.ChatDelayMS)) * time.Millisecond,
			InviteFailRate:   envFloat("DEMO_INVITE_FAIL_RATE", yc.Demo.InviteFailRate),
			CancelFailRate:   envFloat("DEMO_CANCEL_FAIL_RATE", yc.Demo.CancelFailRate),
			FinalizeFailRate: envFloat("DEMO_FINALIZE_FAIL_RATE", yc.Demo.FinalizeFailRate),
			StudentCount:     envInt("DEMO_STUDENT_COUNT", yc.Demo.StudentCount),
			Seed:             int64(envInt("DEMO_SEED", int(yc.Demo.Seed))),
		},
	}

	if cfg.MinGroupInvites <= 0 {
		cfg.MinGroupInvites = 2
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.Profile == "" {
		cfg.Profile = "default"
	}
	if cfg.CredentialFile == "" {
		cfg.CredentialFile = defaultCredentialFile()
	}
	switch cfg.CredentialStore {
	case "memory", "redis", "file":
	default:
		logger.Errorf("config: неизвестный credential_store %q, используется memory", cfg.CredentialStore)
		cfg.CredentialStore = "memory"
	}

	if os.Getenv("APP_ENV") == "production" && (cfg.CORSAllowedOrigins == "" || cfg.CORSAllowedOrigins == "*") {
		logger.Errorf("config: в production задайте CORS_ALLOWED_ORIGINS (явный список origins, не *)")
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg
}

// defaultCredentialFile - <UserConfigDir>/fydp-portal/credentials.json.
func defaultCredentialFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "fydp-portal", "credentials.json")
}

// envStr возвращает значение переменной окружения или fallback.
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt возвращает числовое значение переменной окружения или fallback.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		return fallback
	}
	return f
}
