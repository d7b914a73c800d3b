package config

import (
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig
	Images   ImagesConfig
	Queue    QueueConfig
	Worker   WorkerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Tracing  TracingConfig
	Webhook  WebhookConfig
	Log      LogConfig
}

type APIConfig struct {
	Addr              string
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	UserIDHeader      string
}

type ImagesConfig struct {
	ProjectID      string
	Dataset        string
	BaseURL        string
	DefaultQuality int
	DefaultFit     string
	BlurUpEnabled  bool
	BlurUpWidth    int
	BlurUpQuality  int
	BlurUpAmount   int
	// SizePolicy is "builder" (the image service bounds the width) or
	// "size_table" (DeviceSizes/ImageSizes bound it).
	SizePolicy  string
	DeviceSizes []int
	ImageSizes  []int
	PresetsFile string
}

// Sizes is the combined device and image size table.
func (c ImagesConfig) Sizes() []int {
	out := make([]int, 0, len(c.DeviceSizes)+len(c.ImageSizes))
	out = append(out, c.DeviceSizes...)
	return append(out, c.ImageSizes...)
}

type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Name          string
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

func (q QueueConfig) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

type WorkerConfig struct {
	Concurrency int
	MetricsAddr string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type DatabaseConfig struct {
	// DSN selects the postgres asset store; empty keeps assets in memory.
	DSN string
}

type TracingConfig struct {
	ServiceName  string
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type WebhookConfig struct {
	SigningSecret string
	Timeout       time.Duration
	MaxAttempts   int
}

type LogConfig struct {
	Level  string
	Format string
}

var defaults = map[string]any{
	"pixelprops_api_addr":         ":8080",
	"rate_limit_enabled":          false,
	"rate_limit_requests":         120,
	"rate_limit_window":           time.Minute,
	"rate_limit_user_id_header":   "X-User-ID",
	"sanity_project_id":           "",
	"sanity_dataset":              "production",
	"sanity_cdn_base_url":         "https://cdn.sanity.io",
	"image_default_quality":       75,
	"image_default_fit":           "clip",
	"image_blur_up_enabled":       true,
	"image_blur_up_width":         64,
	"image_blur_up_quality":       30,
	"image_blur_up_amount":        50,
	"image_size_policy":           "builder",
	"image_device_sizes":          "640,750,828,1080,1200,1920,2048,3840",
	"image_sizes":                 "16,32,48,64,96,128,256,384",
	"image_presets_file":          "",
	"redis_addr":                  "localhost:6379",
	"redis_password":              "",
	"redis_db":                    0,
	"async_queue":                 "default",
	"worker_concurrency":          max(2, runtime.NumCPU()),
	"worker_metrics_addr":         ":9091",
	"minio_endpoint":              "localhost:9000",
	"minio_access_key":            "minioadmin",
	"minio_secret_key":            "minioadmin",
	"minio_bucket":                "pixelprops-exports",
	"minio_use_ssl":               false,
	"postgres_dsn":                "",
	"otel_service_name":           "pixelprops",
	"otel_traces_exporter":        "none",
	"otel_exporter_otlp_endpoint": "",
	"otel_exporter_otlp_insecure": true,
	"webhook_signing_secret":      "",
	"webhook_timeout":             10 * time.Second,
	"webhook_max_attempts":        3,
	"log_level":                   "info",
	"log_format":                  "json",
}

// Load reads configuration from the environment.
func Load() Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return FromViper(v)
}

func FromViper(v *viper.Viper) Config {
	return Config{
		API: APIConfig{
			Addr:              v.GetString("pixelprops_api_addr"),
			RateLimitEnabled:  v.GetBool("rate_limit_enabled"),
			RateLimitRequests: v.GetInt("rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("rate_limit_window"),
			UserIDHeader:      v.GetString("rate_limit_user_id_header"),
		},
		Images: ImagesConfig{
			ProjectID:      v.GetString("sanity_project_id"),
			Dataset:        v.GetString("sanity_dataset"),
			BaseURL:        v.GetString("sanity_cdn_base_url"),
			DefaultQuality: v.GetInt("image_default_quality"),
			DefaultFit:     v.GetString("image_default_fit"),
			BlurUpEnabled:  v.GetBool("image_blur_up_enabled"),
			BlurUpWidth:    v.GetInt("image_blur_up_width"),
			BlurUpQuality:  v.GetInt("image_blur_up_quality"),
			BlurUpAmount:   v.GetInt("image_blur_up_amount"),
			SizePolicy:     strings.ToLower(strings.TrimSpace(v.GetString("image_size_policy"))),
			DeviceSizes:    intList(v.GetString("image_device_sizes")),
			ImageSizes:     intList(v.GetString("image_sizes")),
			PresetsFile:    v.GetString("image_presets_file"),
		},
		Queue: QueueConfig{
			RedisAddr:     v.GetString("redis_addr"),
			RedisPassword: v.GetString("redis_password"),
			RedisDB:       v.GetInt("redis_db"),
			Name:          v.GetString("async_queue"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("worker_concurrency"),
			MetricsAddr: v.GetString("worker_metrics_addr"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("minio_endpoint"),
			AccessKey: v.GetString("minio_access_key"),
			SecretKey: v.GetString("minio_secret_key"),
			Bucket:    v.GetString("minio_bucket"),
			UseSSL:    v.GetBool("minio_use_ssl"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("postgres_dsn"),
		},
		Tracing: TracingConfig{
			ServiceName:  v.GetString("otel_service_name"),
			Exporter:     v.GetString("otel_traces_exporter"),
			OTLPEndpoint: v.GetString("otel_exporter_otlp_endpoint"),
			OTLPInsecure: v.GetBool("otel_exporter_otlp_insecure"),
		},
		Webhook: WebhookConfig{
			SigningSecret: v.GetString("webhook_signing_secret"),
			Timeout:       v.GetDuration("webhook_timeout"),
			MaxAttempts:   v.GetInt("webhook_max_attempts"),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
	}
}

// intList parses a comma separated list, skipping entries that are not
// positive integers.
func intList(raw string) []int {
	var out []int
	for _, field := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}
