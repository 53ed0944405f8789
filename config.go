package bulgu

import (
	"encoding/json"
	"net/netip"
	"os"
)

// Default paths used when the storage section leaves them unset.
const (
	DefaultCredentialsPath   = "data/credentials.json"
	DefaultSQLitePath        = "data/bulgu.db"
	DefaultReservedCachePath = "data/reserved_blocks.json"
)

// Default scheduler intervals in minutes.
const (
	DefaultIndexIntervalMinutes   = 7
	DefaultAnalyzeIntervalMinutes = 10
)

// MaxWorkers bounds the in-flight parallelism of each stage.
type MaxWorkers struct {
	IPSearch    int `json:"ip_search"`
	URLFrontier int `json:"url_frontier"`
	PageSearch  int `json:"page_search"`
}

// FailReasonWeights weights validation failure classes for reporting.
type FailReasonWeights struct {
	InvalidStatusCode float64 `json:"INVALID_STATUS_CODE"`
	NotAvailable      float64 `json:"NOT_AVAILABLE"`
	NotTurkish        float64 `json:"NOT_TURKISH"`
}

// CrawlerConfig configures the three crawl stages.
type CrawlerConfig struct {
	Parallelism       int               `json:"parallelism"`
	MaxWorkers        MaxWorkers        `json:"max_workers"`
	ChunkSize         int               `json:"chunk_size"`
	ReqTimeout        int               `json:"req_timeout"` // seconds
	UserAgent         string            `json:"user_agent"`
	AllowedProtocols  []string          `json:"allowed_protocols"`
	RetryAfterMinutes int               `json:"retry_after_minutes"`
	FailReasonWeights FailReasonWeights `json:"fail_reason_weights"`
	MaxDocumentLength int               `json:"max_document_length"`
	Ports             []int             `json:"ports"`
	ShuffleChunks     bool              `json:"shuffle_chunks"`
	ReservedBlocks    []string          `json:"reserved_blocks,omitempty"`
}

// SystemConfig identifies this worker within the static machine partition.
type SystemConfig struct {
	MachineID     int `json:"machine_id"`
	TotalMachines int `json:"total_machines"`
}

// SchedulerConfig sets the re-run intervals for the indexer and analyzer.
type SchedulerConfig struct {
	IndexIntervalMinutes   int `json:"index_interval_minutes,omitempty"`
	AnalyzeIntervalMinutes int `json:"analyze_interval_minutes,omitempty"`
}

// StorageConfig points at the storage backend inputs.
type StorageConfig struct {
	CredentialsPath   string `json:"credentials_path,omitempty"`
	SQLitePath        string `json:"sqlite_path,omitempty"`
	ReservedCachePath string `json:"reserved_cache_path,omitempty"`
}

// Config is the typed form of config.json.
type Config struct {
	Crawler   CrawlerConfig   `json:"crawler"`
	System    SystemConfig    `json:"system"`
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`
	Storage   StorageConfig   `json:"storage,omitempty"`
}

// LoadConfig reads and validates a JSON configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Errorf(EINVALID, "cannot read config file %q: %v", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, Errorf(EINVALID, "cannot parse config file %q: %v", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Scheduler.IndexIntervalMinutes <= 0 {
		c.Scheduler.IndexIntervalMinutes = DefaultIndexIntervalMinutes
	}
	if c.Scheduler.AnalyzeIntervalMinutes <= 0 {
		c.Scheduler.AnalyzeIntervalMinutes = DefaultAnalyzeIntervalMinutes
	}
	if c.Storage.CredentialsPath == "" {
		c.Storage.CredentialsPath = DefaultCredentialsPath
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = DefaultSQLitePath
	}
	if c.Storage.ReservedCachePath == "" {
		c.Storage.ReservedCachePath = DefaultReservedCachePath
	}
}

// Validate returns an error if the configuration cannot drive the pipeline.
// Configuration errors are fatal: they are raised at startup and the process
// exits non-zero.
func (c *Config) Validate() error {
	if c.Crawler.ChunkSize < 1 || c.Crawler.ChunkSize > 256 || 256%c.Crawler.ChunkSize != 0 {
		return Errorf(EINVALID, "chunk_size %d must be in [1,256] and divide 256", c.Crawler.ChunkSize)
	}
	if c.System.TotalMachines < 1 {
		return Errorf(EINVALID, "total_machines must be at least 1")
	}
	if c.System.MachineID < 0 || c.System.MachineID >= c.System.TotalMachines {
		return Errorf(EINVALID, "machine_id %d must be in [0,%d)", c.System.MachineID, c.System.TotalMachines)
	}
	if len(c.Crawler.Ports) == 0 {
		return Errorf(EINVALID, "at least one port is required")
	}
	if c.Crawler.Parallelism < 1 {
		return Errorf(EINVALID, "parallelism must be at least 1")
	}
	if c.Crawler.MaxWorkers.IPSearch < 1 || c.Crawler.MaxWorkers.URLFrontier < 1 || c.Crawler.MaxWorkers.PageSearch < 1 {
		return Errorf(EINVALID, "max_workers values must be at least 1")
	}
	if c.Crawler.ReqTimeout < 1 {
		return Errorf(EINVALID, "req_timeout must be at least 1 second")
	}
	if c.Crawler.MaxDocumentLength < 1 {
		return Errorf(EINVALID, "max_document_length must be positive")
	}
	for _, block := range c.Crawler.ReservedBlocks {
		if _, err := netip.ParsePrefix(block); err != nil {
			return Errorf(EINVALID, "invalid reserved block %q: %v", block, err)
		}
	}
	return nil
}
