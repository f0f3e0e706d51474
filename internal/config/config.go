package config

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds the service configuration, read from the environment
// with an optional .env file.
type Config struct {
	Port       string
	MongoURI   string // empty selects the in-memory store
	MongoDB    string
	MQTTBroker string // empty disables the status event stream
	LogLevel   string
}

// Load reads configuration from .env (if present) and the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to load .env file")
	}
	return Config{
		Port:       getenv("PORT", "8080"),
		MongoURI:   os.Getenv("MONGO_URI"),
		MongoDB:    getenv("MONGO_DB", "fleet"),
		MQTTBroker: os.Getenv("MQTT_BROKER"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
