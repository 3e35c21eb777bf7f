package config

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/erain9/lobsim/pkg/db/queue"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		HTTPAddr  string `yaml:"http_addr"`
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"server"`

	Book struct {
		Backend      string `yaml:"backend"`
		HistoryLimit int    `yaml:"history_limit"`
	} `yaml:"book"`

	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`

	Kafka struct {
		Enabled    bool   `yaml:"enabled"`
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
	} `yaml:"kafka"`

	Otel struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"otel"`

	Simulator struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"simulator"`
}

// Backend choices for Config.Book.Backend
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Default configuration values
var (
	configFile = flag.String("config", "", "Path to config file (YAML)")
	httpPort   = flag.Int("http_port", 8080, "The HTTP server port")
	logLevel   = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat  = flag.String("log_format", "pretty", "Log format: json, pretty")
	simulator  = flag.Bool("simulator", false, "Run the background order simulator")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	flag.Parse()

	config := &Config{}
	config.Server.HTTPAddr = fmt.Sprintf(":%d", *httpPort)
	config.Server.LogLevel = *logLevel
	config.Server.LogFormat = *logFormat
	config.Book.Backend = BackendMemory
	config.Redis.Addr = "localhost:6379"
	config.Redis.KeyPrefix = "lobsim"
	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.Topic = "lobsim-reports"
	config.Otel.Endpoint = "localhost:4317"
	config.Simulator.Enabled = *simulator

	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		log.Printf("Loaded configuration from %s", *configFile)
	}

	if config.Book.Backend != BackendMemory && config.Book.Backend != BackendRedis {
		return nil, fmt.Errorf("unknown book backend %q", config.Book.Backend)
	}

	// Propagate Kafka settings to the producer package
	queue.SetBrokerList(config.Kafka.BrokerAddr)
	queue.SetTopic(config.Kafka.Topic)

	return config, nil
}
