package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port"`
}

func (a *AppConfig) PortString() string { return fmt.Sprintf("%d", a.Port) }

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type Config struct {
	App   AppConfig   `mapstructure:"app"`
	Mongo MongoConfig `mapstructure:"mongodb"`
	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	// derived values
	RequestTimeout time.Duration
}

// RedisEnabled reports whether a presence store should be wired.
func (c *Config) RedisEnabled() bool { return c.Redis.Addr != "" }

// KafkaEnabled reports whether the event mirror should be wired.
func (c *Config) KafkaEnabled() bool { return len(c.Kafka.Brokers) > 0 }

// Load reads config.yaml (path may override the location) plus environment
// overrides. The Mongo connection target and database name are required;
// the process must not serve traffic without them.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()
	_ = v.BindEnv("mongodb.uri", "MONGODB_URI")
	_ = v.BindEnv("mongodb.database", "DB_NAME")
	_ = v.BindEnv("app.port", "SERVER_PORT")

	if err := v.ReadInConfig(); err != nil {
		// config file is optional when env carries the required values
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	// sensible defaults
	c.RequestTimeout = 10 * time.Second
	if c.App.Port == 0 {
		c.App.Port = 8888
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "message.created"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "chat-relay"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "chatrelay"
	}

	if c.Mongo.URI == "" {
		return nil, errors.New("mongodb.uri missing")
	}
	if c.Mongo.Database == "" {
		return nil, errors.New("mongodb.database missing")
	}
	return &c, nil
}
