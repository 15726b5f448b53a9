// Package config provides hierarchical configuration loading for ToolGate.
// Precedence: defaults < YAML file < environment variables.
package config

// Config holds all runtime configuration for the ToolGate service.
type Config struct {
	Server    Server    `yaml:"server"`
	NATS      NATS      `yaml:"nats"`
	Logging   Logging   `yaml:"logging"`
	Policy    Policy    `yaml:"policy"`
	Scheduler Scheduler `yaml:"scheduler"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// NATS holds the optional NATS bridge configuration. When disabled,
// confirmations are only reachable through the HTTP/WebSocket surface.
type NATS struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Policy holds auto-decision policy configuration.
type Policy struct {
	Profile   string `yaml:"profile"`    // built-in preset or custom profile name
	CustomDir string `yaml:"custom_dir"` // directory of custom profile YAML files
}

// Scheduler holds tool execution configuration.
type Scheduler struct {
	Workers int `yaml:"workers"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		NATS: NATS{
			Enabled: false,
			URL:     "nats://localhost:4222",
		},
		Logging: Logging{
			Level:   "info",
			Service: "toolgate",
		},
		Policy: Policy{
			Profile: "interactive",
		},
		Scheduler: Scheduler{
			Workers: 4,
		},
	}
}
