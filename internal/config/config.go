package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DynamoConfig struct {
	Endpoint  string
	Region    string
	Table     string
	AccessKey string
	SecretKey string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
}

type VisionConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

type SecurityConfig struct {
	JWTSecret string
}

type EnrichConfig struct {
	MaxConcurrent  int
	ClaimInterval  time.Duration
	StuckThreshold time.Duration
	SweepSchedule  string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Dynamo           DynamoConfig
	Storage          StorageConfig
	Redis            RedisConfig
	Vision           VisionConfig
	Security         SecurityConfig
	Enrich           EnrichConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("PHOTOBUCKET")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("dynamo.region", "us-east-1")
	v.SetDefault("dynamo.table", "photobucket-photos")

	v.SetDefault("storage.bucket", "photobucket-originals")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "photos:enrich")
	v.SetDefault("redis.group", "enrich-workers")

	v.SetDefault("vision.baseurl", "https://api.openai.com/v1")
	v.SetDefault("vision.model", "gpt-4o-mini")
	v.SetDefault("vision.timeout", "30s")
	v.SetDefault("vision.maxtokens", 300)

	v.SetDefault("enrich.maxconcurrent", 4)
	v.SetDefault("enrich.claiminterval", "30s")
	v.SetDefault("enrich.stuckthreshold", "15m")
	v.SetDefault("enrich.sweepschedule", "0 */5 * * * *")
}
