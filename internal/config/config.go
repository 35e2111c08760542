package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/place-density/internal/pkg/geoutil"
	"github.com/place-density/internal/pkg/validator"
)

// Config is the full runtime configuration: the OSM download catalogue,
// per-region extraction filters, and the ambient pipeline settings.
type Config struct {
	Server        ServerConfig
	Pipeline      PipelineConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Log           LogConfig
	Regions       map[string]string
	Versions      map[string]string
	RegionConfigs map[string]RegionConfig
}

type ServerConfig struct {
	URL            string `validate:"required,url"`
	RequestTimeout time.Duration
}

type PipelineConfig struct {
	DataDir         string `validate:"required"`
	OutputDir       string `validate:"required"`
	PopulationCache string `validate:"required"`
	PopulationChunk int    `validate:"gt=0"`
	WikidataURL     string `validate:"required,url"`
}

type HTTPConfig struct {
	Host string
	Port int `validate:"gte=0,lte=65535"`
}

// DatabaseConfig configures the optional Postgres results export.
// Enabled is derived from the presence of a host.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig configures the optional shared population cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

type LogConfig struct {
	Level string
}

// FilterConfig describes which entities match: an optional entity class,
// keys that must all be present, and tag values (any-of per key).
type FilterConfig struct {
	Entity string `validate:"omitempty,oneof=node way relation"`
	Keys   []string
	Tags   map[string][]string
}

// Empty reports whether the filter matches nothing beyond the empty-tag rule.
func (f FilterConfig) Empty() bool {
	return f.Entity == "" && len(f.Keys) == 0 && len(f.Tags) == 0
}

// KeptTags is the tag whitelist carried onto extracted features.
func (f FilterConfig) KeptTags() []string {
	kept := []string{"name", "wikidata"}
	kept = append(kept, f.Keys...)
	for key := range f.Tags {
		kept = append(kept, key)
	}
	return kept
}

// AreasConfig selects the administrative boundaries used as join targets.
type AreasConfig struct {
	AdminLevel string `validate:"required"`
}

// Filter derives the extraction filter for the configured admin level.
func (a AreasConfig) Filter() FilterConfig {
	return FilterConfig{Tags: map[string][]string{"admin_level": {a.AdminLevel}}}
}

// ClipConfig restricts the area set: a bounding box, a tag mask, or both.
type ClipConfig struct {
	AdminLevel string
	BBox       []float64
	Tags       map[string][]string
}

// HasBBox reports whether a bounding box clip is configured.
func (c ClipConfig) HasBBox() bool {
	return len(c.BBox) > 0
}

// HasMask reports whether a tag-based mask clip is configured.
func (c ClipConfig) HasMask() bool {
	return c.AdminLevel != "" || len(c.Tags) > 0
}

// Filter derives the extraction filter for the clip mask.
func (c ClipConfig) Filter() FilterConfig {
	tags := make(map[string][]string, len(c.Tags)+1)
	for key, values := range c.Tags {
		tags[key] = values
	}
	if c.AdminLevel != "" {
		tags["admin_level"] = []string{c.AdminLevel}
	}
	return FilterConfig{Tags: tags}
}

// RegionConfig bundles the three filters of one configured region.
type RegionConfig struct {
	Areas  AreasConfig
	Clip   ClipConfig
	Places FilterConfig
}

// Load reads the TOML configuration file and applies env overrides.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("toml")
	v.SetEnvPrefix("PLACEDENSITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			URL:            v.GetString("server.url"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Pipeline: PipelineConfig{
			DataDir:         v.GetString("pipeline.data_dir"),
			OutputDir:       v.GetString("pipeline.output_dir"),
			PopulationCache: v.GetString("pipeline.population_cache"),
			PopulationChunk: v.GetInt("pipeline.population_chunk"),
			WikidataURL:     v.GetString("pipeline.wikidata_url"),
		},
		HTTP: HTTPConfig{
			Host: v.GetString("http.host"),
			Port: v.GetInt("http.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxConns:        v.GetInt("database.max_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Regions:  v.GetStringMapString("regions"),
		Versions: v.GetStringMapString("versions"),
	}

	cfg.RegionConfigs = make(map[string]RegionConfig, len(cfg.Regions))
	for name := range cfg.Regions {
		regionCfg, err := loadRegionConfig(v, name)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", name, err)
		}
		cfg.RegionConfigs[name] = regionCfg
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.request_timeout", 5*time.Minute)
	v.SetDefault("pipeline.data_dir", "data")
	v.SetDefault("pipeline.output_dir", "output")
	v.SetDefault("pipeline.population_cache", "data/populations.json")
	v.SetDefault("pipeline.population_chunk", 20)
	v.SetDefault("pipeline.wikidata_url", "https://query.wikidata.org/sparql")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.cache_ttl", 30*24*time.Hour)
}

func loadRegionConfig(v *viper.Viper, name string) (RegionConfig, error) {
	cfg := RegionConfig{
		Areas: AreasConfig{
			AdminLevel: v.GetString(name + ".areas.admin_level"),
		},
		Clip: ClipConfig{
			AdminLevel: v.GetString(name + ".clip.admin_level"),
			BBox:       floats(v.Get(name + ".clip.bbox")),
		},
		Places: FilterConfig{
			Entity: v.GetString(name + ".places.entity"),
			Keys:   v.GetStringSlice(name + ".places.keys"),
		},
	}
	if cfg.Areas.AdminLevel == "" {
		cfg.Areas.AdminLevel = "9"
	}

	var err error
	if cfg.Clip.Tags, err = tagValues(v.Get(name + ".clip.tags")); err != nil {
		return cfg, fmt.Errorf("clip tags: %w", err)
	}
	if cfg.Places.Tags, err = tagValues(v.Get(name + ".places.tags")); err != nil {
		return cfg, fmt.Errorf("places tags: %w", err)
	}
	return cfg, nil
}

// tagValues normalizes a TOML tag table where values are either a single
// string or a list of strings (any-of match).
func tagValues(raw interface{}) (map[string][]string, error) {
	if raw == nil {
		return nil, nil
	}
	table, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, fmt.Errorf("expected a table of tag values: %w", err)
	}
	if len(table) == 0 {
		return nil, nil
	}
	tags := make(map[string][]string, len(table))
	for key, value := range table {
		switch v := value.(type) {
		case string:
			tags[key] = []string{v}
		default:
			values, err := cast.ToStringSliceE(v)
			if err != nil {
				return nil, fmt.Errorf("tag %q: expected string or list of strings", key)
			}
			tags[key] = values
		}
	}
	return tags, nil
}

func floats(raw interface{}) []float64 {
	if raw == nil {
		return nil
	}
	values, err := cast.ToSliceE(raw)
	if err != nil {
		return nil
	}
	out := make([]float64, 0, len(values))
	for _, v := range values {
		out = append(out, cast.ToFloat64(v))
	}
	return out
}

// Validate checks struct tags plus the cross-field invariants viper cannot express.
func (c *Config) Validate() error {
	if err := validator.Validate(c.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validator.Validate(c.Pipeline); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	if err := validator.Validate(c.HTTP); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	if len(c.Regions) == 0 {
		return fmt.Errorf("no regions configured")
	}
	for name, regionCfg := range c.RegionConfigs {
		if err := validator.Validate(regionCfg.Places); err != nil {
			return fmt.Errorf("region %q places: %w", name, err)
		}
		if err := validator.Validate(regionCfg.Areas); err != nil {
			return fmt.Errorf("region %q areas: %w", name, err)
		}
		if regionCfg.Clip.HasBBox() && !geoutil.ValidateBBox(regionCfg.Clip.BBox) {
			return fmt.Errorf("region %q: invalid bbox %v", name, regionCfg.Clip.BBox)
		}
	}
	return nil
}

// GetServerAddr returns the host:port the serve command listens on.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// GetDatabaseDSN builds the Postgres connection string for the export target.
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address for the shared population cache.
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// DatabaseEnabled reports whether a results export target is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Host != ""
}

// RedisEnabled reports whether the shared population cache is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}
