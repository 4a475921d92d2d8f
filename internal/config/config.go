package config

import (
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	AppointmentsTable string
	BillingsTable     string
	DoctorsTable      string
	PatientsTable     string

	ArtifactBucket  string
	ArtifactBaseURL string

	DefaultPaymentMode string
	SearchLookupLimit  int
	HistoryLimit       int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AppointmentsTable: getEnv("APPOINTMENTS_TABLE", "appointments"),
		BillingsTable:     getEnv("BILLINGS_TABLE", "payments"),
		DoctorsTable:      getEnv("DOCTORS_TABLE", "doctors"),
		PatientsTable:     getEnv("PATIENTS_TABLE", "patients"),

		ArtifactBucket:  getEnv("ARTIFACT_BUCKET", ""),
		ArtifactBaseURL: getEnv("ARTIFACT_BASE_URL", ""),

		DefaultPaymentMode: getEnv("DEFAULT_PAYMENT_MODE", "Cash"),
		SearchLookupLimit:  getEnvAsInt("SEARCH_LOOKUP_LIMIT", 8),
		HistoryLimit:       getEnvAsInt("HISTORY_LIMIT", 100),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
