package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type MailSender struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	RabbitMQ `yaml:"rabbitmq"`
	SMTP     `yaml:"smtp"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-required:"true"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME" env-required:"true"`
	Password string `yaml:"password" env:"SMTP_PASSWORD" env-required:"true"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

// * MustLoadMailSender читает конфиг из файла, если он есть, иначе только из окружения.
func MustLoadMailSender() *MailSender {
	var cfg MailSender

	path := fetchConfigPath()

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		panic("Failed to read mail sender config: " + err.Error())
	}

	return &cfg
}
