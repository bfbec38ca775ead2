package model

// APIServer holds the api server configuration
type APIServer struct {
	Addr      string    `yaml:"addr" validate:"required"`
	TLS       TLS       `yaml:"tls" validate:"omitempty"`
	BasicAuth BasicAuth `yaml:"basic_auth"`
}

// TLS holds the tls configuration
type TLS struct {
	Enabled      bool   `yaml:"enabled"`
	CertFilePath string `yaml:"cert_file_path"`
	KeyFilePath  string `yaml:"key_file_path"`
}

// BasicAuth holds the basic auth configuration
type BasicAuth struct {
	Users   map[string]string `yaml:"users"`
	Enabled bool              `yaml:"enabled"`
}

// Mongo holds the database configuration
type Mongo struct {
	URI string `yaml:"uri" validate:"required"`
}

// Log holds the log configuration
type Log struct {
	Level      string `yaml:"level"`
	FolderPath string `yaml:"folder_path"`
}

// OTEL holds the opentelemetry configuration
type OTEL struct {
	Addr    string `yaml:"addr" validate:"required"`
	Type    string `yaml:"type" validate:"required"`
	Timeout int64  `yaml:"timeout" default:"10"`
}

// Common holds configuration shared by every deployment of this service
type Common struct {
	HTTPProxy  string  `yaml:"http_proxy"`
	Production bool    `yaml:"production"`
	Log        Log     `yaml:"log"`
	Mongo      Mongo    `yaml:"mongo" validate:"required"`
	Tracing    OTEL    `yaml:"tracing" validate:"required"`
	CORS       CORSCfg `yaml:"cors"`
}

// CORSCfg holds the configurable CORS allow-list (ORIGINAL §6 "Environment")
type CORSCfg struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

// Codec holds the limits and pool sizing for the PNG codec worker pool (ORIGINAL §5)
type Codec struct {
	// WorkerPoolSize bounds concurrent encode/decode jobs; 0 means runtime.NumCPU()
	WorkerPoolSize int `yaml:"worker_pool_size" default:"0"`
	// QueueLength bounds the number of codec jobs waiting for a worker
	QueueLength int `yaml:"queue_length" default:"64"`
	// MaxEncodedImageBytes is the max accepted encoded JPEG size for Process (ORIGINAL §5 "Limits");
	// PNGs sent for verification are not checked against it
	MaxEncodedImageBytes int64 `yaml:"max_encoded_image_bytes" default:"52428800"`
	// MaxPixels is the max accepted W*H pixel count (ORIGINAL §5 "Limits")
	MaxPixels int64 `yaml:"max_pixels" default:"67108864"`
	// MaxBasicInfoBytes is the max accepted basic-info payload length (ORIGINAL §5 "Limits")
	MaxBasicInfoBytes int `yaml:"max_basic_info_bytes" default:"65536"`
}

// Sessions holds the two-phase signing session store configuration (ORIGINAL §5)
type Sessions struct {
	TTLSeconds     int `yaml:"ttl_seconds" default:"600"`
	MaxSessions    int `yaml:"max_sessions" default:"1024"`
	ShardCount     int `yaml:"shard_count" default:"16"`
	ReaperInterval int `yaml:"reaper_interval_seconds" default:"60"`
}

// RateLimit holds per-peer request throttling for the codec-bound endpoints
// (ORIGINAL §5 "Limits", §7 "Backpressure")
type RateLimit struct {
	ImageRequestsPerMinute int `yaml:"image_requests_per_minute" default:"30"`
}

// Geocam holds the GeoCam service configuration
type Geocam struct {
	APIServer APIServer `yaml:"api_server" validate:"required"`
	Codec     Codec     `yaml:"codec"`
	Sessions  Sessions  `yaml:"sessions"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// Cfg is the main configuration structure for this application
type Cfg struct {
	Common Common `yaml:"common"`
	Geocam Geocam `yaml:"geocam" validate:"required"`
}
