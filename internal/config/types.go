package config

// Config is the root configuration document.
//
// All durations are Go duration strings (e.g. "500ms", "2s", "1m").
// Files may be JSON or YAML; both are decoded strictly, unknown keys are
// rejected.
type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Batch names the tabular source the runs are built from.
	Batch BatchConfig `json:"batch"`

	Dispatch DispatchConfig `json:"dispatch"`
	Executor ExecutorConfig `json:"executor"`

	Storage *StorageConfig `json:"storage,omitempty"`
	HTTP    *HTTPConfig    `json:"http,omitempty"`
	Trigger *TriggerConfig `json:"trigger,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type BatchConfig struct {
	// Path to the batch file (.csv or .xlsx).
	Path string `json:"path"`
	// Sheet selects a workbook sheet; empty means the first one.
	Sheet string `json:"sheet,omitempty"`
}

// DispatchConfig maps 1:1 onto the engine's run configuration.
//
// Defaults (when fields are omitted/zero):
//   - default_country_code: "+20"
//   - delay_between: "2s"
//   - max_retries: 2
//   - retry_base: "1s"
type DispatchConfig struct {
	DefaultCountryCode string `json:"default_country_code,omitempty"`
	// GlobalSchedule is a time of day ("HH:MM:SS"); empty starts runs
	// immediately.
	GlobalSchedule string `json:"global_schedule,omitempty"`
	DelayBetween   string `json:"delay_between,omitempty"`
	MaxRetries     int    `json:"max_retries,omitempty"`
	RetryBase      string `json:"retry_base,omitempty"`
	RetryMaxDelay  string `json:"retry_max_delay,omitempty"`

	ResumeFromCheckpoint bool `json:"resume_from_checkpoint,omitempty"`
}

// ExecutorConfig selects the delivery backend.
//
// Backend values: "gateway" (HTTP message gateway), "script" (dry run).
type ExecutorConfig struct {
	Backend string         `json:"backend"`
	Gateway *GatewayConfig `json:"gateway,omitempty"`
	Script  *ScriptConfig  `json:"script,omitempty"`
}

type GatewayConfig struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token,omitempty"` // do not log
	// WaitTimeout bounds each delivery attempt.
	WaitTimeout string `json:"wait_timeout,omitempty"`
	RatePerMin  int    `json:"rate_per_min,omitempty"`
}

type ScriptConfig struct {
	FailMatching string `json:"fail_matching,omitempty"`
	SendDelay    string `json:"send_delay,omitempty"`
}

// StorageConfig controls the checkpoint/audit persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./blastbot_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// HTTPConfig controls the operator control API.
// Prefer binding to localhost; the API carries no authentication.
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:8080"
}

// TriggerConfig schedules recurring runs of the configured batch.
//
// Spec accepts "cron:<expr>", "interval:<duration>", a bare cron
// expression, a bare duration, or "HH:MM" (daily at that time).
type TriggerConfig struct {
	Enabled bool   `json:"enabled"`
	Spec    string `json:"spec"`
}
