package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort  int `yaml:"apiPort"`
	Database struct {
		Type     string `yaml:"type"` // "postgres" or "sqlite"
		Path     string `yaml:"path"` // sqlite file path
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Name     string `yaml:"name"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Mail struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"mail"`
	Auth struct {
		JWTSecret     string        `yaml:"jwtSecret"`
		TokenDuration time.Duration `yaml:"tokenDuration"`
	} `yaml:"auth"`
	Verification struct {
		CodeTTL time.Duration `yaml:"codeTTL"`
	} `yaml:"verification"`
	Images struct {
		Backend    string `yaml:"backend"` // "local" or "s3"
		LocalDir   string `yaml:"localDir"`
		PublicBase string `yaml:"publicBase"`
		S3         struct {
			Endpoint        string `yaml:"endpoint"`
			Region          string `yaml:"region"`
			Bucket          string `yaml:"bucket"`
			AccessKeyID     string `yaml:"accessKeyId"`
			SecretAccessKey string `yaml:"secretAccessKey"`
		} `yaml:"s3"`
	} `yaml:"images"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
		log.Println("APIPort not specified, using default 8081")
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
		log.Println("Database type not specified, defaulting to sqlite")
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/data/duohub.db"
		log.Println("Database path not specified, using default /data/duohub.db")
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
		log.Println("Redis address not specified, using default localhost:6379")
	}

	if cfg.Auth.TokenDuration == 0 {
		cfg.Auth.TokenDuration = 24 * time.Hour
	}
	if cfg.Verification.CodeTTL == 0 {
		cfg.Verification.CodeTTL = 5 * time.Minute
	}

	if cfg.Images.Backend == "" {
		cfg.Images.Backend = "local"
	}
	if cfg.Images.LocalDir == "" {
		cfg.Images.LocalDir = "./images/profile"
		log.Println("Image directory not specified, using default ./images/profile")
	}
	if cfg.Images.PublicBase == "" {
		cfg.Images.PublicBase = "/static/profile"
	}

	return &cfg, nil
}
