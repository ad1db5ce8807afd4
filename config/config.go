package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every knob the server reads from the environment.
type Config struct {
	Port           string   `envconfig:"PORT" default:"8080"`
	AWSRegion      string   `envconfig:"AWS_REGION" default:"us-east-1"`
	S3Bucket       string   `envconfig:"S3_BUCKET_NAME"`
	JWTSecret      string   `envconfig:"JWT_SECRET" required:"true"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
