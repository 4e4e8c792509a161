package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration, loaded from the environment.
type Config struct {
	// Server
	ServerPort int

	// MongoDB (sources, imports, staging, mappings)
	MongoURI string
	MongoDB  string

	// Neo4j (graph entities)
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// InfluxDB (time-series rows)
	InfluxURL      string
	InfluxToken    string
	InfluxDatabase string

	// Ontology collaborator
	OntologyURL string

	// Processing
	BatchSize       int
	ProcessInterval int // milliseconds between processor sweeps
	CacheTTL        int // seconds
	RetentionSweep  int // minutes between staged data retention sweeps

	// Logging
	LogLevel string
	LogDir   string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnvInt("SERVER_PORT", 8090),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DATABASE", "dataloom"),

		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", "neo4j"),

		InfluxURL:      getEnv("INFLUXDB_URL", "http://localhost:8086"),
		InfluxToken:    getEnv("INFLUXDB_TOKEN", ""),
		InfluxDatabase: getEnv("INFLUXDB_DATABASE", "dataloom"),

		OntologyURL: getEnv("ONTOLOGY_URL", "http://localhost:8091"),

		BatchSize:       getEnvInt("BATCH_SIZE", 200),
		ProcessInterval: getEnvInt("PROCESS_INTERVAL", 500),
		CacheTTL:        getEnvInt("CACHE_TTL", 60),
		RetentionSweep:  getEnvInt("RETENTION_SWEEP", 60),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogDir:   getEnv("LOG_DIRECTORY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that loaded values are usable.
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.ServerPort)
	}
	if c.BatchSize < 1 || c.BatchSize > 10000 {
		return fmt.Errorf("invalid BATCH_SIZE: %d (must be 1-10000)", c.BatchSize)
	}
	if c.ProcessInterval < 50 || c.ProcessInterval > 60000 {
		return fmt.Errorf("invalid PROCESS_INTERVAL: %d (must be 50-60000ms)", c.ProcessInterval)
	}
	if c.CacheTTL < 1 {
		return fmt.Errorf("invalid CACHE_TTL: %d", c.CacheTTL)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
