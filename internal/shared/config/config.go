package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	DatabaseURL string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string

	ArtifactURLTTL     time.Duration
	ArtifactSecret     string
	ArtifactPublicBase string

	ReplicateBaseURL      string
	ReplicateAPIToken     string
	ReplicateModelVersion string

	AtomBaseURL string

	BatchSize       int
	PollInterval    time.Duration
	PollMaxAttempts int
	InterBatchDelay time.Duration
	ExtraDelayEvery int
	ExtraDelay      time.Duration

	SQSQueueURL string
}

// Valuation model version pinned on the Replicate side. Overridable via env for
// testing against a different model release.
const defaultModelVersion = "a925db842c707850e4ca7b7e86b217692b0353a9ca05eb028802c4a85db93843"

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,

		DatabaseURL: dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),

		ArtifactURLTTL:     getEnvDuration("ARTIFACT_URL_TTL", 24*time.Hour),
		ArtifactSecret:     getEnv("ARTIFACT_URL_SECRET", ""),
		ArtifactPublicBase: strings.TrimRight(getEnv("ARTIFACT_PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		ReplicateBaseURL:      strings.TrimRight(getEnv("REPLICATE_BASE_URL", "https://api.replicate.com"), "/"),
		ReplicateAPIToken:     getEnv("REPLICATE_API_TOKEN", ""),
		ReplicateModelVersion: getEnv("REPLICATE_MODEL_VERSION", defaultModelVersion),

		AtomBaseURL: strings.TrimRight(getEnv("ATOM_BASE_URL", "https://www.atom.com"), "/"),

		BatchSize:       getEnvInt("BATCH_SIZE", 2500),
		PollInterval:    getEnvDuration("POLL_INTERVAL", 1500*time.Millisecond),
		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 120),
		InterBatchDelay: getEnvDuration("INTER_BATCH_DELAY", 10*time.Second),
		ExtraDelayEvery: getEnvInt("EXTRA_DELAY_EVERY", 6),
		ExtraDelay:      getEnvDuration("EXTRA_DELAY", 60*time.Second),

		SQSQueueURL: strings.TrimSpace(getEnv("DW_SQS_QUEUE_URL", "")),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config: %s invalid int %q, using default %d", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val < 0 {
		log.Printf("config: %s invalid duration %q, using default %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
