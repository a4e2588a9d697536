package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"    validate:"required"`
	Storage     StorageConfig     `mapstructure:"storage"     validate:"required"`
	OCR         OCRConfig         `mapstructure:"ocr"         validate:"required"`
	Metadata    MetadataConfig    `mapstructure:"metadata"    validate:"required"`
	Translation TranslationConfig `mapstructure:"translation" validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// StorageConfig selects and configures the blob storage backend.
// The filesystem backend only needs Path; the s3 backend needs the
// endpoint, credentials and bucket.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"    validate:"required,oneof=fs s3"`
	Path      string `mapstructure:"path"       validate:"required_if=Backend fs"`
	Endpoint  string `mapstructure:"endpoint"   validate:"required_if=Backend s3"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"     validate:"required_if=Backend s3"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// OCRConfig controls OCR processing: the scoring heuristic, the optional
// external engine, staleness recovery and the OCR worker pool.
type OCRConfig struct {
	SamplePages           int    `mapstructure:"sample_pages"            validate:"required,gt=0"`
	Engine                string `mapstructure:"engine"                  validate:"required,oneof=HEURISTIC OCRMYPDF"`
	OcrmypdfCommand       string `mapstructure:"ocrmypdf_command"`
	OcrmypdfLanguages     string `mapstructure:"ocrmypdf_languages"`
	OcrmypdfTimeoutSecs   int    `mapstructure:"ocrmypdf_timeout_seconds" validate:"required,gt=0"`
	RunningTimeoutSeconds int    `mapstructure:"running_timeout_seconds"  validate:"required,gt=0"`
	Workers               int    `mapstructure:"workers"                  validate:"required,gt=0"`
	QueueSize             int    `mapstructure:"queue_size"               validate:"required,gt=0"`
}

// MetadataConfig controls the metadata extraction worker pool.
type MetadataConfig struct {
	Workers   int `mapstructure:"workers"    validate:"required,gt=0"`
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`
}

// TranslationConfig controls the remote translation gateway, the
// auto-translation cache and its per-key rate limiter.
type TranslationConfig struct {
	Provider        string `mapstructure:"provider"          validate:"required,oneof=MYMEMORY LIBRETRANSLATE"`
	MyMemoryURL     string `mapstructure:"mymemory_url"      validate:"required"`
	LibreURL        string `mapstructure:"libre_url"`
	LibreAPIKey     string `mapstructure:"libre_api_key"`
	TimeoutMs       int    `mapstructure:"timeout_ms"        validate:"required,gt=0"`
	CacheTTLSecs    int    `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxEntries int    `mapstructure:"cache_max_entries" validate:"required,gt=0"`
	MinIntervalMs   int    `mapstructure:"min_interval_ms"   validate:"required,gt=0"`
}
