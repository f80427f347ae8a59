// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "COMPENG_PORT"
	EnvLogLevel        = "COMPENG_LOG_LEVEL"
	EnvShutdownTimeout = "COMPENG_SHUTDOWN_TIMEOUT"

	// Table source
	EnvTableSource     = "COMPENG_TABLE_SOURCE"
	EnvFetchTimeout    = "COMPENG_FETCH_TIMEOUT"
	EnvFetchMaxRetries = "COMPENG_FETCH_MAX_RETRIES"

	// Google Sheets
	EnvSheetsCredentials      = "COMPENG_SHEETS_CREDENTIALS"
	EnvSheetsRange            = "COMPENG_SHEETS_RANGE"
	EnvSheetIDUGCourses       = "COMPENG_SHEET_ID_UG_COURSES"
	EnvSheetIDCourseLecturers = "COMPENG_SHEET_ID_COURSE_LECTURERS"
	EnvSheetIDLecturerInfo    = "COMPENG_SHEET_ID_LECTURER_INFO"

	// Object storage (R2 / S3)
	EnvObjectEndpoint        = "COMPENG_OBJECT_ENDPOINT"
	EnvObjectAccessKeyID     = "COMPENG_OBJECT_ACCESS_KEY_ID"
	EnvObjectSecretAccessKey = "COMPENG_OBJECT_SECRET_ACCESS_KEY"
	EnvObjectBucket          = "COMPENG_OBJECT_BUCKET"
	EnvObjectPrefix          = "COMPENG_OBJECT_PREFIX"

	// SQLite
	EnvSQLitePath        = "COMPENG_SQLITE_PATH"
	EnvSQLiteSnapshotKey = "COMPENG_SQLITE_SNAPSHOT_KEY"

	// LLM (free-text relay and LINE)
	EnvLLMProviders       = "COMPENG_LLM_PROVIDERS"
	EnvGeminiAPIKey       = "COMPENG_GEMINI_API_KEY"
	EnvGroqAPIKey         = "COMPENG_GROQ_API_KEY"
	EnvGeminiIntentModels = "COMPENG_GEMINI_INTENT_MODELS"
	EnvGroqIntentModels   = "COMPENG_GROQ_INTENT_MODELS"

	// Relay
	EnvRelayAllowOrigins = "COMPENG_RELAY_ALLOW_ORIGINS"
	EnvRelayRateBurst    = "COMPENG_RELAY_RATE_BURST"
	EnvRelayRateRefill   = "COMPENG_RELAY_RATE_REFILL"

	// LINE
	EnvLineChannelAccessToken = "COMPENG_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "COMPENG_LINE_CHANNEL_SECRET"

	// Metrics
	EnvMetricsUsername = "COMPENG_METRICS_USERNAME"
	EnvMetricsPassword = "COMPENG_METRICS_PASSWORD"

	// Sentry
	EnvSentryDSN         = "COMPENG_SENTRY_DSN"
	EnvSentryEnvironment = "COMPENG_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "COMPENG_SENTRY_SAMPLE_RATE"

	// Better Stack
	EnvBetterStackToken    = "COMPENG_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "COMPENG_BETTERSTACK_ENDPOINT"
)
