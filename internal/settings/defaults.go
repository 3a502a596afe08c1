package settings

const (
	DefaultConfigPath            = "config/clipdeck.json"
	DefaultSource                = SourceAPI
	DefaultAPIBaseURL            = "http://localhost:8000"
	DefaultDownloadDir           = "downloads"
	DefaultRequestTimeoutSeconds = 30
	DefaultRevealMarginRows      = 4
	DefaultDownloadWorkers       = 3
	DefaultS3Bucket              = "openshorts.app-clips"
	DefaultS3Region              = "us-east-1"
	DefaultLogLevel              = "info"

	SourceAPI = "api"
	SourceS3  = "s3"

	EnvSource          = "CLIPDECK_SOURCE"
	EnvAPIBaseURL      = "CLIPDECK_API_URL"
	EnvDownloadDir     = "CLIPDECK_DOWNLOAD_DIR"
	EnvDownloadWorkers = "CLIPDECK_DOWNLOAD_WORKERS"
	EnvLogLevel        = "CLIPDECK_LOG_LEVEL"
	EnvLogFile         = "CLIPDECK_LOG_FILE"
	EnvS3Bucket        = "AWS_S3_BUCKET"
	EnvS3Region        = "AWS_REGION"
)
