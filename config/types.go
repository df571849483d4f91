package config

// Storage tunes the LevelDB state store and the audit log location.
type Storage struct {
	CacheMB       int    `toml:"CacheMB" envconfig:"CACHE_MB"`
	OpenFiles     int    `toml:"OpenFiles" envconfig:"OPEN_FILES"`
	WriteBufferMB int    `toml:"WriteBufferMB" envconfig:"WRITE_BUFFER_MB"`
	AuditLog      string `toml:"AuditLog" envconfig:"AUDIT_LOG"`
}

// RPC configures the JSON-RPC listener.
type RPC struct {
	Address           string   `toml:"Address" envconfig:"ADDRESS"`
	JWTSecret         string   `toml:"JWTSecret" envconfig:"JWT_SECRET"`
	JWTSecretEnv      string   `toml:"JWTSecretEnv" envconfig:"JWT_SECRET_ENV"`
	JWTIssuer         string   `toml:"JWTIssuer" envconfig:"JWT_ISSUER"`
	RateLimitPerSec   float64  `toml:"RateLimitPerSec" envconfig:"RATE_LIMIT_PER_SEC"`
	RateLimitBurst    int      `toml:"RateLimitBurst" envconfig:"RATE_LIMIT_BURST"`
	ReadHeaderTimeout int      `toml:"ReadHeaderTimeout" envconfig:"READ_HEADER_TIMEOUT"`
	ReadTimeout       int      `toml:"ReadTimeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout      int      `toml:"WriteTimeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout       int      `toml:"IdleTimeout" envconfig:"IDLE_TIMEOUT"`
	MaxBodyBytes      int64    `toml:"MaxBodyBytes" envconfig:"MAX_BODY_BYTES"`
	AllowedOrigins    []string `toml:"AllowedOrigins" envconfig:"ALLOWED_ORIGINS"`
}

// Logging selects the log level and optional rotated file output.
type Logging struct {
	Level       string `toml:"Level" envconfig:"LEVEL"`
	Environment string `toml:"Environment" envconfig:"ENVIRONMENT"`
	File        string `toml:"File" envconfig:"FILE"`
	MaxSizeMB   int    `toml:"MaxSizeMB" envconfig:"MAX_SIZE_MB"`
	MaxBackups  int    `toml:"MaxBackups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays  int    `toml:"MaxAgeDays" envconfig:"MAX_AGE_DAYS"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint" envconfig:"ENDPOINT"`
	Insecure bool   `toml:"Insecure" envconfig:"INSECURE"`
	Headers  string `toml:"Headers" envconfig:"HEADERS"`
	Metrics  bool   `toml:"Metrics" envconfig:"METRICS"`
	Traces   bool   `toml:"Traces" envconfig:"TRACES"`
	// SampleRatio keeps this fraction of root spans; 0 keeps all.
	SampleRatio float64 `toml:"SampleRatio" envconfig:"SAMPLE_RATIO"`
}

// Wallet lists the paymasters whose sponsorship the entry point accepts.
type Wallet struct {
	Sponsors []string `toml:"Sponsors" envconfig:"SPONSORS"`
}

// Quota limits payments per sender and window. Zero values disable a limit.
type Quota struct {
	MaxRequestsPerEpoch uint32 `toml:"MaxRequestsPerEpoch" envconfig:"MAX_REQUESTS_PER_EPOCH"`
	MaxVolumePerEpoch   string `toml:"MaxVolumePerEpoch" envconfig:"MAX_VOLUME_PER_EPOCH"` // base units
	EpochSeconds        uint32 `toml:"EpochSeconds" envconfig:"EPOCH_SECONDS"`
}
