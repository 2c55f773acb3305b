package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/config.yaml"

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	App        `yaml:"app"`
	Tokens     `yaml:"tokens"`
	Password   `yaml:"password"`
	Sessions   `yaml:"sessions"`
	Sweeper    `yaml:"sweeper"`
	RabbitMQ   `yaml:"rabbitmq"`
	Postgres   `yaml:"postgres"`
	HTTPServer `yaml:"http_server"`
}

type App struct {
	FrontendURL string `yaml:"frontend_url" env:"APP_FRONTEND_URL" env-default:"http://localhost:4200"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

type Tokens struct {
	AccessTokenSecret       string        `yaml:"access_token_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	AccessTokenTTL          time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTokenSecret      string        `yaml:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	RefreshTokenTTL         time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
	VerificationTokenTTL    time.Duration `yaml:"verification_token_ttl" env-default:"24h"`
	VerificationTokenSecret string        `yaml:"verification_token_secret" env:"VERIFICATION_TOKEN_SECRET" env-required:"true"`
}

type Password struct {
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// Sessions.MaxPerUser = 0 отключает ограничение на количество устройств.
type Sessions struct {
	MaxPerUser int `yaml:"max_per_user" env-default:"10"`
}

type Sweeper struct {
	Schedule string        `yaml:"schedule" env:"SWEEPER_SCHEDULE" env-default:"@daily"`
	Timeout  time.Duration `yaml:"timeout" env-default:"1m"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env:"RABBITMQ_QUEUE" env-required:"true"`
}

func MustLoad() *Config {
	return MustLoadPath(fetchConfigPath())
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return &cfg
}

// * fetchConfigPath берет путь из флага -config, затем из CONFIG_PATH.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = defaultConfigPath
	}

	return res
}
