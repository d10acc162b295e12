// Package config loads server configuration from flags, environment
// variables, and defaults, in that priority order.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tickstream/protocol"
)

// TickstreamConfig is the complete configuration for one server
// process. Priority: Flags > Environment Variables > Defaults.
type TickstreamConfig struct {
	Server    ServerConfig    `json:"server"`
	History   HistoryConfig   `json:"history"`
	Source    SourceConfig    `json:"source"`
	Logging   LoggingConfig   `json:"logging"`
	WebSocket WebSocketConfig `json:"websocket"`
}

type ServerConfig struct {
	Host    string `json:"host"`
	Port    string `json:"port"`
	Version string `json:"version"`
}

type HistoryConfig struct {
	MaxTicks           int `json:"max_ticks"`
	CheckpointInterval int `json:"checkpoint_interval"`
}

type SourceConfig struct {
	EntityCount        int           `json:"entity_count"`
	TickInterval       time.Duration `json:"tick_interval"`
	VisualizationFile  string        `json:"visualization_file"`
	SubscriberCapacity int           `json:"subscriber_capacity"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	LogDir string `json:"log_dir"`
}

type WebSocketConfig struct {
	WriteTimeout    time.Duration `json:"write_timeout"`
	PongTimeout     time.Duration `json:"pong_timeout"`
	PingPeriod      time.Duration `json:"ping_period"`
	MaxMessageSize  int64         `json:"max_message_size"`
	ReadBufferSize  int           `json:"read_buffer_size"`
	WriteBufferSize int           `json:"write_buffer_size"`
}

// Config is the process-wide configuration, populated by Initialize.
var Config *TickstreamConfig

func defaults() *TickstreamConfig {
	return &TickstreamConfig{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    "8080",
			Version: "1.0.0",
		},
		History: HistoryConfig{
			MaxTicks:           10000,
			CheckpointInterval: 100,
		},
		Source: SourceConfig{
			EntityCount:        50,
			TickInterval:       time.Second,
			SubscriberCapacity: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			LogDir: "/var/log/tickstream",
		},
		WebSocket: WebSocketConfig{
			WriteTimeout:    10 * time.Second,
			PongTimeout:     60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxMessageSize:  32 * 1024,
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Initialize loads configuration from defaults, then environment
// variables, then command-line flags, storing the result in Config.
func Initialize() error {
	c := defaults()
	applyEnvironment(c)
	applyFlags(c)
	Config = c
	return nil
}

func applyEnvironment(c *TickstreamConfig) {
	if host := os.Getenv("TICKSTREAM_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("TICKSTREAM_PORT"); port != "" {
		c.Server.Port = port
	}
	if level := os.Getenv("TICKSTREAM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if logDir := os.Getenv("TICKSTREAM_LOG_DIR"); logDir != "" {
		c.Logging.LogDir = logDir
	}
	if maxTicks := os.Getenv("TICKSTREAM_MAX_TICKS"); maxTicks != "" {
		if v, err := strconv.Atoi(maxTicks); err == nil {
			c.History.MaxTicks = v
		}
	}
	if checkpointInterval := os.Getenv("TICKSTREAM_CHECKPOINT_INTERVAL"); checkpointInterval != "" {
		if v, err := strconv.Atoi(checkpointInterval); err == nil {
			c.History.CheckpointInterval = v
		}
	}
	if entityCount := os.Getenv("TICKSTREAM_MOCK_ENTITIES"); entityCount != "" {
		if v, err := strconv.Atoi(entityCount); err == nil {
			c.Source.EntityCount = v
		}
	}
	if tickInterval := os.Getenv("TICKSTREAM_TICK_INTERVAL"); tickInterval != "" {
		if v, err := time.ParseDuration(tickInterval); err == nil {
			c.Source.TickInterval = v
		}
	}
	if queueCapacity := os.Getenv("TICKSTREAM_QUEUE_CAPACITY"); queueCapacity != "" {
		if v, err := strconv.Atoi(queueCapacity); err == nil {
			c.Source.SubscriberCapacity = v
		}
	}
	if visFile := os.Getenv("TICKSTREAM_VISUALIZATION_FILE"); visFile != "" {
		c.Source.VisualizationFile = visFile
	}
}

func applyFlags(c *TickstreamConfig) {
	if flag.Parsed() {
		return
	}
	host := flag.String("host", c.Server.Host, "host to bind to")
	port := flag.String("port", c.Server.Port, "port to bind to")
	logLevel := flag.String("log-level", c.Logging.Level, "log level (debug, info, warn, error, fatal)")
	logDir := flag.String("log-dir", c.Logging.LogDir, "directory for log files")
	maxTicks := flag.Int("max-ticks", c.History.MaxTicks, "maximum retained ticks")
	checkpointInterval := flag.Int("checkpoint-interval", c.History.CheckpointInterval, "ticks between full checkpoints")
	mockEntities := flag.Int("mock-entities", c.Source.EntityCount, "number of mock entities to simulate")
	tickInterval := flag.Duration("tick-interval", c.Source.TickInterval, "time between simulated ticks")
	queueCapacity := flag.Int("queue-capacity", c.Source.SubscriberCapacity, "per-subscriber event queue capacity")
	visFile := flag.String("visualization-file", c.Source.VisualizationFile, "optional YAML file with visualization hints")

	flag.Parse()

	c.Server.Host = *host
	c.Server.Port = *port
	c.Logging.Level = *logLevel
	c.Logging.LogDir = *logDir
	c.History.MaxTicks = *maxTicks
	c.History.CheckpointInterval = *checkpointInterval
	c.Source.EntityCount = *mockEntities
	c.Source.TickInterval = *tickInterval
	c.Source.SubscriberCapacity = *queueCapacity
	c.Source.VisualizationFile = *visFile
}

// LoadVisualizationConfig reads an optional YAML file describing
// per-world display hints. A missing path is not an error: callers
// fall back to the source's built-in defaults.
func LoadVisualizationConfig(path string) (*protocol.VisualizationConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading visualization config: %w", err)
	}
	var cfg protocol.VisualizationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing visualization config: %w", err)
	}
	return &cfg, nil
}

func GetAddress() string {
	return Config.Server.Host + ":" + Config.Server.Port
}

func GetVersion() string {
	return Config.Server.Version
}
