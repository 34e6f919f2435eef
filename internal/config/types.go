package config

// Config is the root configuration for attachkit.
type Config struct {
	Gateway     GatewayConfig     `yaml:"gateway,omitempty"`
	Logging     LoggingConfig     `yaml:"logging,omitempty"`
	Storage     StorageConfig     `yaml:"storage,omitempty"`
	Permissions PermissionsConfig `yaml:"permissions,omitempty"`
	Platform    PlatformConfig    `yaml:"platform,omitempty"`
	Channels    ChannelsConfig    `yaml:"channels,omitempty"`
	Hooks       HooksConfig       `yaml:"hooks,omitempty"`
	Store       StoreConfig       `yaml:"store,omitempty"`
}

// GatewayConfig controls the gateway HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int              `yaml:"port,omitempty"`
	Bind           string           `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string           `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth      `yaml:"auth,omitempty"`
	TLS            GatewayTLS       `yaml:"tls,omitempty"`
	AllowedOrigins []string         `yaml:"allowedOrigins,omitempty"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "token" | "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// StorageConfig selects and configures the remote blob store.
type StorageConfig struct {
	Backend  string         `yaml:"backend,omitempty"` // "disk" | "s3" | "spaces" | "firebase"
	Naming   string         `yaml:"naming,omitempty"`  // "unique" | "segment" | "content"
	MaxBytes int64          `yaml:"maxBytes,omitempty"`
	Disk     DiskConfig     `yaml:"disk,omitempty"`
	S3       S3Config       `yaml:"s3,omitempty"`
	Firebase FirebaseConfig `yaml:"firebase,omitempty"`
}

// DiskConfig stores uploads in a local directory served by the gateway.
type DiskConfig struct {
	Dir     string `yaml:"dir,omitempty"`
	BaseURL string `yaml:"baseUrl,omitempty"`
}

// S3Config configures an S3-compatible bucket. For DigitalOcean Spaces set
// Endpoint to the region endpoint and optionally SpacesToken so the CDN
// endpoint can be looked up.
type S3Config struct {
	Bucket          string `yaml:"bucket,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	AccessKeyID     string `yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty"`
	PublicBaseURL   string `yaml:"publicBaseUrl,omitempty"`
	PresignMinutes  int    `yaml:"presignMinutes,omitempty"`
	PathStyle       bool   `yaml:"pathStyle,omitempty"`
	SpacesToken     string `yaml:"spacesToken,omitempty"`
}

// FirebaseConfig configures a Firebase Storage (Google Cloud Storage) bucket.
type FirebaseConfig struct {
	Bucket          string `yaml:"bucket,omitempty"`
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
}

// PermissionsConfig sets the policy per permission scope.
type PermissionsConfig struct {
	MediaLibrary string `yaml:"mediaLibrary,omitempty"` // "grant" | "deny" | "ask"
	Camera       string `yaml:"camera,omitempty"`
	Location     string `yaml:"location,omitempty"`
}

// PlatformConfig configures the local picker, camera and locator.
type PlatformConfig struct {
	LibraryDir    string        `yaml:"libraryDir,omitempty"`
	CameraCommand string        `yaml:"cameraCommand,omitempty"` // e.g. "fswebcam --no-banner {output}"
	Locator       LocatorConfig `yaml:"locator,omitempty"`
}

// LocatorConfig selects where position readings come from.
type LocatorConfig struct {
	Mode      string  `yaml:"mode,omitempty"` // "static" | "http" | "none"
	Latitude  float64 `yaml:"latitude,omitempty"`
	Longitude float64 `yaml:"longitude,omitempty"`
	URL       string  `yaml:"url,omitempty"`
}

// ChannelsConfig defines chat channels that payloads are delivered to.
type ChannelsConfig struct {
	IRC *IRCConfig `yaml:"irc,omitempty"`
}

// IRCConfig defines IRC channel settings.
type IRCConfig struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port,omitempty"`
	Nick     string   `yaml:"nick"`
	Password string   `yaml:"password,omitempty"`
	Channels []string `yaml:"channels"`
	UseTLS   bool     `yaml:"useTLS,omitempty"`
	SASL     bool     `yaml:"sasl,omitempty"`
}

// HooksConfig maps lifecycle events to shell commands.
type HooksConfig struct {
	PermissionDenied []HookEntry `yaml:"permissionDenied,omitempty"`
	PickerCancelled  []HookEntry `yaml:"pickerCancelled,omitempty"`
	UploadStarted    []HookEntry `yaml:"uploadStarted,omitempty"`
	UploadCompleted  []HookEntry `yaml:"uploadCompleted,omitempty"`
	PayloadEmitted   []HookEntry `yaml:"payloadEmitted,omitempty"`
	FlowFailed       []HookEntry `yaml:"flowFailed,omitempty"`
	GatewayStart     []HookEntry `yaml:"gatewayStart,omitempty"`
	GatewayStop      []HookEntry `yaml:"gatewayStop,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}
