package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认节奏参数：首条自动推进对白停留更短，之后的对白按正常阅读速度推进。
const (
	DefaultFirstDelay     = 1500 * time.Millisecond
	DefaultNextDelay      = 3 * time.Second
	DefaultAdvanceCeiling = 20
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Pacing  PacingConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	backend, err := loadBackendConfig()
	if err != nil {
		return nil, err
	}

	pacing, err := loadPacingConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Backend: backend, Pacing: pacing}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// BackendConfig 描述小说生成后端的访问方式。
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

func loadBackendConfig() (BackendConfig, error) {
	timeout, err := parseOptionalIntEnv("NOVEL_API_TIMEOUT")
	if err != nil {
		return BackendConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		if *timeout < 1 {
			return BackendConfig{}, fmt.Errorf("invalid NOVEL_API_TIMEOUT value %d: must be positive", *timeout)
		}
		timeoutSeconds = *timeout
	}

	return BackendConfig{
		BaseURL: strings.TrimRight(getEnvOrDefault("NOVEL_API_BASE_URL", "http://localhost:8000"), "/"),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// PacingConfig 控制对白自动推进的节奏与防失控上限。
type PacingConfig struct {
	FirstDelay     time.Duration
	NextDelay      time.Duration
	AdvanceCeiling int
}

// DefaultPacing returns the pacing used when nothing is configured.
func DefaultPacing() PacingConfig {
	return PacingConfig{
		FirstDelay:     DefaultFirstDelay,
		NextDelay:      DefaultNextDelay,
		AdvanceCeiling: DefaultAdvanceCeiling,
	}
}

// Validate 校验节奏参数。
func (p PacingConfig) Validate() error {
	if p.FirstDelay <= 0 || p.NextDelay <= 0 {
		return fmt.Errorf("pacing delays must be positive (first=%s next=%s)", p.FirstDelay, p.NextDelay)
	}
	if p.FirstDelay > p.NextDelay {
		return fmt.Errorf("first delay %s must not exceed next delay %s", p.FirstDelay, p.NextDelay)
	}
	if p.AdvanceCeiling < 1 {
		return fmt.Errorf("advance ceiling must be at least 1, got %d", p.AdvanceCeiling)
	}
	return nil
}

// loadPacingConfig 先读取可选的 YAML 文件，再用环境变量覆盖。
func loadPacingConfig() (PacingConfig, error) {
	pacing := DefaultPacing()

	if path := strings.TrimSpace(os.Getenv("ROLEPLAY_CONFIG_FILE")); path != "" {
		fromFile, err := LoadPacingFile(path)
		if err != nil {
			return PacingConfig{}, err
		}
		pacing = fromFile
	}

	first, err := parseOptionalDurationEnv("ROLEPLAY_FIRST_DELAY")
	if err != nil {
		return PacingConfig{}, err
	}
	if first != nil {
		pacing.FirstDelay = *first
	}

	next, err := parseOptionalDurationEnv("ROLEPLAY_NEXT_DELAY")
	if err != nil {
		return PacingConfig{}, err
	}
	if next != nil {
		pacing.NextDelay = *next
	}

	ceiling, err := parseOptionalIntEnv("ROLEPLAY_ADVANCE_CEILING")
	if err != nil {
		return PacingConfig{}, err
	}
	if ceiling != nil {
		pacing.AdvanceCeiling = *ceiling
	}

	if err := pacing.Validate(); err != nil {
		return PacingConfig{}, err
	}
	return pacing, nil
}

// pacingFile mirrors PacingConfig with string durations ("1.5s", "3s").
type pacingFile struct {
	Pacing struct {
		FirstDelay     string `yaml:"first_delay"`
		NextDelay      string `yaml:"next_delay"`
		AdvanceCeiling *int   `yaml:"advance_ceiling"`
	} `yaml:"pacing"`
}

// LoadPacingFile reads pacing overrides from a YAML file. Missing keys keep
// their defaults.
func LoadPacingFile(path string) (PacingConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PacingConfig{}, fmt.Errorf("read pacing config %s: %w", path, err)
	}

	var file pacingFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return PacingConfig{}, fmt.Errorf("parse pacing config %s: %w", path, err)
	}

	pacing := DefaultPacing()
	if v := strings.TrimSpace(file.Pacing.FirstDelay); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return PacingConfig{}, fmt.Errorf("invalid first_delay %q: %w", v, err)
		}
		pacing.FirstDelay = d
	}
	if v := strings.TrimSpace(file.Pacing.NextDelay); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return PacingConfig{}, fmt.Errorf("invalid next_delay %q: %w", v, err)
		}
		pacing.NextDelay = d
	}
	if file.Pacing.AdvanceCeiling != nil {
		pacing.AdvanceCeiling = *file.Pacing.AdvanceCeiling
	}
	return pacing, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseOptionalDurationEnv 接受 Go 时长格式（"1500ms"）或纯数字毫秒。
func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	if ms, err := strconv.Atoi(value); err == nil {
		d := time.Duration(ms) * time.Millisecond
		return &d, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &d, nil
}
