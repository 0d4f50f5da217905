// Package config charge les paramètres du pipeline et du serveur : fichier YAML
// facultatif, fichier .env facultatif, puis variables RFM_*.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"retail-rfm/pkg/models"
)

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Ingest  IngestConfig  `yaml:"ingest"`
	RFM     RFMConfig     `yaml:"rfm"`
	Stats   StatsConfig   `yaml:"stats"`
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Source  SourceConfig  `yaml:"source"`
	Sink    SinkConfig    `yaml:"sink"`
	Archive ArchiveConfig `yaml:"archive"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Export  ExportConfig  `yaml:"export"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type IngestConfig struct {
	CancellationPrefix string `yaml:"cancellation_prefix" validate:"required"`
	Workers            int    `yaml:"workers" validate:"gte=1"`
}

type RFMConfig struct {
	Workers int `yaml:"workers" validate:"gte=1"`
}

type StatsConfig struct {
	MaxRows int `yaml:"max_rows" validate:"gte=0"`
	TopN    int `yaml:"top_n" validate:"gte=1"`
}

type ServerConfig struct {
	Addr               string   `yaml:"addr" validate:"required"`
	MaxUploadMB        int      `yaml:"max_upload_mb" validate:"gte=1"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" validate:"gte=0"`
	CORSOrigins        []string `yaml:"cors_origins"`
	SamplePath         string   `yaml:"sample_path"`
}

type CacheConfig struct {
	RedisURL   string        `yaml:"redis_url" validate:"omitempty,url"`
	MaxEntries int           `yaml:"max_entries" validate:"gte=1"`
	TTL        time.Duration `yaml:"ttl"`
}

type SourceConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type SinkConfig struct {
	PostgresURL string `yaml:"postgres_url"`
	Table       string `yaml:"table" validate:"required"`
}

type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket" validate:"required_with=Endpoint"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic" validate:"required_with=Brokers"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Default renvoie les valeurs par défaut.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Ingest: IngestConfig{CancellationPrefix: "C", Workers: 1},
		RFM:    RFMConfig{Workers: 1},
		Stats:  StatsConfig{MaxRows: 300000, TopN: 10},
		Server: ServerConfig{
			Addr:               ":8080",
			MaxUploadMB:        200,
			RateLimitPerMinute: 30,
			CORSOrigins:        []string{"http://localhost:5173"},
		},
		Cache: CacheConfig{MaxEntries: 8, TTL: 24 * time.Hour},
		Sink:  SinkConfig{Table: "customer_rfm"},
		Kafka: KafkaConfig{Topic: "rfm.segments"},
	}
}

// Load construit la configuration. Fichier absent : pas d'erreur ;
// chemin vide : pas de fichier.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}

	_ = godotenv.Load()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Pipeline extrait les paramètres lus par calculator.Run.
func (c *Config) Pipeline() models.Config {
	return models.Config{
		CancellationPrefix: c.Ingest.CancellationPrefix,
		IngestWorkers:      c.Ingest.Workers,
		RFMWorkers:         c.RFM.Workers,
		StatsMaxRows:       c.Stats.MaxRows,
		TopN:               c.Stats.TopN,
		Verbose:            c.Log.Level == "debug",
	}
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"RFM_LOG_LEVEL":           &cfg.Log.Level,
		"RFM_LOG_FORMAT":          &cfg.Log.Format,
		"RFM_CANCELLATION_PREFIX": &cfg.Ingest.CancellationPrefix,
		"RFM_HTTP_ADDR":           &cfg.Server.Addr,
		"RFM_SAMPLE_PATH":         &cfg.Server.SamplePath,
		"RFM_REDIS_URL":           &cfg.Cache.RedisURL,
		"RFM_SOURCE_DSN":          &cfg.Source.DSN,
		"RFM_SOURCE_TABLE":        &cfg.Source.Table,
		"RFM_POSTGRES_URL":        &cfg.Sink.PostgresURL,
		"RFM_SINK_TABLE":          &cfg.Sink.Table,
		"RFM_MINIO_ENDPOINT":      &cfg.Archive.Endpoint,
		"RFM_MINIO_ACCESS_KEY":    &cfg.Archive.AccessKey,
		"RFM_MINIO_SECRET_KEY":    &cfg.Archive.SecretKey,
		"RFM_MINIO_BUCKET":        &cfg.Archive.Bucket,
		"RFM_KAFKA_TOPIC":         &cfg.Kafka.Topic,
		"RFM_EXPORT_DIR":          &cfg.Export.Dir,
	}
	for key, dst := range str {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
		}
	}

	ints := map[string]*int{
		"RFM_INGEST_WORKERS":    &cfg.Ingest.Workers,
		"RFM_WORKERS":           &cfg.RFM.Workers,
		"RFM_STATS_MAX_ROWS":    &cfg.Stats.MaxRows,
		"RFM_TOP_N":             &cfg.Stats.TopN,
		"RFM_MAX_UPLOAD_MB":     &cfg.Server.MaxUploadMB,
		"RFM_RATE_LIMIT":        &cfg.Server.RateLimitPerMinute,
		"RFM_CACHE_MAX_ENTRIES": &cfg.Cache.MaxEntries,
	}
	for key, dst := range ints {
		val, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	if val, ok := os.LookupEnv("RFM_CACHE_TTL"); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("RFM_CACHE_TTL: %w", err)
		}
		cfg.Cache.TTL = d
	}
	if val, ok := os.LookupEnv("RFM_MINIO_USE_SSL"); ok {
		cfg.Archive.UseSSL = strings.EqualFold(val, "true")
	}
	if val, ok := os.LookupEnv("RFM_CORS_ORIGINS"); ok {
		cfg.Server.CORSOrigins = splitCSV(val)
	}
	if val, ok := os.LookupEnv("RFM_KAFKA_BROKERS"); ok {
		cfg.Kafka.Brokers = splitCSV(val)
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
