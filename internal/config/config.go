package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env           string        `yaml:"env" env:"ENV" env-default:"local"`
	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	CheckInterval time.Duration `yaml:"check_interval" env-default:"30m"`
	HTTPServer    `yaml:"http_server"`
	Postgres      `yaml:"postgres"`
	Redis         `yaml:"redis"`
	RabbitMQ      `yaml:"rabbitmq"`
	ScraperAPI    `yaml:"scraperapi"`
	Zyte          `yaml:"zyte"`
	Notification  `yaml:"notification"`
	SMTP          `yaml:"smtp"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// Headless rendering upstream is slow, so a scrape response may take minutes.
	ScrapeTimeout time.Duration `yaml:"scrape_timeout" env-default:"65m"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr       string        `yaml:"addr" env-default:"redis:6379"`
	Db         int           `yaml:"db" env-default:"1"`
	DefaultTTL time.Duration `yaml:"default_ttl" env-default:"1m"`
}

type RabbitMQ struct {
	URL            string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	MineQueue      string `yaml:"mine_queue" env-default:"mine_tasks"`
	WorkerPoolSize int    `yaml:"worker_pool_size" env-default:"10"`
}

type ScraperAPI struct {
	Endpoint string        `yaml:"endpoint" env-default:"https://api.scraperapi.com/"`
	APIKey   string        `yaml:"api_key" env:"SCRAPERAPI_KEY" env-required:"true"`
	Timeout  time.Duration `yaml:"timeout" env-default:"60m"`
}

type Zyte struct {
	Endpoint string        `yaml:"endpoint" env-default:"https://api.zyte.com/v1/extract"`
	APIKey   string        `yaml:"api_key" env:"ZYTE_KEY" env-required:"true"`
	Timeout  time.Duration `yaml:"timeout" env-default:"60m"`
}

type Notification struct {
	Endpoint      string        `yaml:"endpoint" env:"NOTIFICATION_ENDPOINT" env-default:"http://localhost:8081/notify"`
	ListenAddress string        `yaml:"listen_address" env-default:"localhost:8081"`
	Timeout       time.Duration `yaml:"timeout" env-default:"30s"`
}

type SMTP struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME" env-default:""`
	Password string `yaml:"password" env:"SMTP_PASSWORD" env-default:""`
	From     string `yaml:"from" env-default:"alerts@pricewatch.local"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", configPath)
	}

	return &cfg
}
