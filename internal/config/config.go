// Package config loads workpool settings from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"workpool/internal/demo"
	"workpool/internal/logger"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Pool   PoolConfig   `yaml:"pool" json:"pool"`
	Driver DriverConfig `yaml:"driver" json:"driver"`
	Log    LogConfig    `yaml:"log" json:"log"`
	Server ServerConfig `yaml:"server" json:"server"`
}

// PoolConfig はルートプールの設定
type PoolConfig struct {
	Name    string `yaml:"name" json:"name"`
	Workers int    `yaml:"workers" json:"workers"` // 0 で CPU 数
}

// DriverConfig はタスク投入の設定
type DriverConfig struct {
	Tasks         int `yaml:"tasks" json:"tasks"`
	NestedWorkers int `yaml:"nested_workers" json:"nested_workers"`
	FanoutEvery   int `yaml:"fanout_every" json:"fanout_every"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// ServerConfig はステータスサーバーの設定
type ServerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// Validate は設定を検証する
// 0 は「未指定」としてデフォルト値に置き換えるので負の値だけを拒否する
func (f *FileConfig) Validate() error {
	if f.Pool.Workers < 0 {
		return fmt.Errorf("pool.workers must be non-negative")
	}
	if f.Driver.Tasks < 0 {
		return fmt.Errorf("driver.tasks must be non-negative")
	}
	if f.Driver.NestedWorkers < 0 {
		return fmt.Errorf("driver.nested_workers must be non-negative")
	}
	if f.Driver.FanoutEvery < 0 {
		return fmt.Errorf("driver.fanout_every must be non-negative")
	}
	if _, err := logger.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ToDriverConfig は FileConfig を demo.Config に変換する
func (f *FileConfig) ToDriverConfig() demo.Config {
	config := demo.DefaultConfig()

	if f.Pool.Name != "" {
		config.PoolName = f.Pool.Name
	}
	if f.Pool.Workers > 0 {
		config.Workers = f.Pool.Workers
	} else {
		config.Workers = runtime.NumCPU()
	}
	if f.Driver.Tasks > 0 {
		config.Tasks = f.Driver.Tasks
	}
	if f.Driver.NestedWorkers > 0 {
		config.NestedWorkers = f.Driver.NestedWorkers
	}
	if f.Driver.FanoutEvery > 0 {
		config.FanoutEvery = f.Driver.FanoutEvery
	}

	return config
}

// LogLevel は設定されたログレベルを返す
func (f *FileConfig) LogLevel() (logger.Level, error) {
	return logger.ParseLevel(f.Log.Level)
}

// ServerAddr はサーバーアドレスを返す（未指定なら :8080）
func (f *FileConfig) ServerAddr() string {
	if f.Server.Addr == "" {
		return ":8080"
	}
	return f.Server.Addr
}
