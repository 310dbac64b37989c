package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config 服务端全部配置，从 TOML 文件读取
type Config struct {
	Addr      string          `toml:"addr"`
	Log       LogConfig       `toml:"log"`
	Session   SessionConfig   `toml:"session"`
	Admission AdmissionConfig `toml:"admission"`
}

// LogConfig 日志级别，以及可选的滚动日志文件
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// SessionConfig 共享会话的参数
type SessionConfig struct {
	HitDelayMs      int   `toml:"hit_delay_ms"`
	ProbeIntervalMs int   `toml:"probe_interval_ms"`
	ProbeWindow     int   `toml:"probe_window"`
	ColorSeed       int64 `toml:"color_seed"`
	SendQueue       int   `toml:"send_queue"`
	InboxSize       int   `toml:"inbox_size"`
	MaxMessageBytes int64 `toml:"max_message_bytes"`
}

// AdmissionConfig 限制单个远端地址的建连速度。
// 速率不大于 0 时不限流
type AdmissionConfig struct {
	ConnectsPerSecond float64 `toml:"connects_per_second"`
	Burst             int     `toml:"burst"`
}

func (c SessionConfig) HitDelay() time.Duration {
	return time.Duration(c.HitDelayMs) * time.Millisecond
}

func (c SessionConfig) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalMs) * time.Millisecond
}

// DefaultConfig 未指定配置文件时使用的默认值
func DefaultConfig() Config {
	return Config{
		Addr: ":10001",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Session: SessionConfig{
			HitDelayMs:      200,
			ProbeIntervalMs: 1000,
			ProbeWindow:     10,
			SendQueue:       64,
			InboxSize:       256,
			MaxMessageBytes: 1 << 20,
		},
		Admission: AdmissionConfig{
			ConnectsPerSecond: 5,
			Burst:             10,
		},
	}
}

// LoadConfig 在默认值之上读取 path；path 为空则直接返回默认值
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 拒绝会话无法运行的取值
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	s := c.Session
	if s.HitDelayMs <= 0 {
		errs = append(errs, errors.New("session.hit_delay_ms must be positive"))
	}
	if s.ProbeIntervalMs <= 0 || s.ProbeInterval() >= pongWait {
		errs = append(errs, fmt.Errorf("session.probe_interval_ms must be in (0, %d)", pongWait.Milliseconds()))
	}
	if s.ProbeWindow <= 0 {
		errs = append(errs, errors.New("session.probe_window must be positive"))
	}
	if s.SendQueue <= 0 || s.InboxSize <= 0 {
		errs = append(errs, errors.New("session.send_queue and session.inbox_size must be positive"))
	}
	if s.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("session.max_message_bytes must be positive"))
	}
	if c.Admission.ConnectsPerSecond > 0 && c.Admission.Burst <= 0 {
		errs = append(errs, errors.New("admission.burst must be positive when a rate is set"))
	}
	return errors.Join(errs...)
}
