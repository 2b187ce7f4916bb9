// Package config loads the dashboard configuration from a YAML file,
// VITALS_* environment variables and command-line flags via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve on minimal images

	"github.com/spf13/viper"

	"github.com/sweeney/vitals-dashboard/internal/dashboard"
	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

// Default values for configuration.
const (
	DefaultPatient         = "patient_001"
	DefaultHTTPAddr        = ":8080"
	DefaultWindow          = 15
	DefaultRefreshInterval = 30 * time.Second
	DefaultFetchTimeout    = 15 * time.Second
	MaxWindow              = 1000
)

// Feed backends.
const (
	BackendRedis    = "redis"
	BackendFirebase = "firebase"
	BackendMQTT     = "mqtt"
)

// Config is the resolved configuration of one dashboard process.
type Config struct {
	Patient         string          `mapstructure:"patient"`
	HTTP            HTTPConfig      `mapstructure:"http"`
	Log             LogConfig       `mapstructure:"log"`
	Feed            FeedConfig      `mapstructure:"feed"`
	RefreshInterval time.Duration   `mapstructure:"refresh_interval"`
	FetchTimeout    time.Duration   `mapstructure:"fetch_timeout"`
	Dashboard       DashboardConfig `mapstructure:"dashboard"`
	Policy          PolicyConfig    `mapstructure:"policy"`
	Buttons         ButtonsConfig   `mapstructure:"buttons"`
}

// HTTPConfig configures the status page. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FeedConfig selects the snapshot and live backends.
type FeedConfig struct {
	Snapshot string         `mapstructure:"snapshot"` // redis | firebase
	Live     string         `mapstructure:"live"`     // redis | mqtt
	Redis    RedisConfig    `mapstructure:"redis"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
}

// Name describes the backend pair, e.g. "firebase+mqtt".
func (f FeedConfig) Name() string {
	if f.Snapshot == f.Live {
		return f.Snapshot
	}
	return f.Snapshot + "+" + f.Live
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type FirebaseConfig struct {
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         int    `mapstructure:"qos"`
}

// DashboardConfig holds display settings.
type DashboardConfig struct {
	Window      int    `mapstructure:"window"`
	ChartMetric string `mapstructure:"chart_metric"`
	Timezone    string `mapstructure:"timezone"` // IANA name or "Local"
}

// PolicyConfig holds the classification tables. Rules, aliases and units
// are merged over the built-in defaults key by key, later entries winning.
// They are lists because viper lower-cases map keys and field names such
// as "heartRate" or "bodyWeight" are case-sensitive.
type PolicyConfig struct {
	OutOfRange      string        `mapstructure:"out_of_range"`
	UnknownCategory string        `mapstructure:"unknown_category"`
	Sentinels       string        `mapstructure:"sentinels"`
	CountWarnings   bool          `mapstructure:"count_warnings"`
	Rules           []RuleConfig  `mapstructure:"rules"`
	Aliases         []AliasConfig `mapstructure:"aliases"`
	Units           []UnitConfig  `mapstructure:"units"`
	UnitFallback    string        `mapstructure:"unit_fallback"`
}

// RuleConfig is one classification rule for Key. Min and Max make a range
// rule, Accepted makes an enum rule.
type RuleConfig struct {
	Key       string    `mapstructure:"key"`
	Min       *float64  `mapstructure:"min"`
	Max       *float64  `mapstructure:"max"`
	Normal    *float64  `mapstructure:"normal"`
	Tolerance float64   `mapstructure:"tolerance"`
	Accepted  []string  `mapstructure:"accepted"`
	Sentinels []float64 `mapstructure:"sentinels"`
}

type AliasConfig struct {
	Raw string `mapstructure:"raw"`
	Key string `mapstructure:"key"`
}

type UnitConfig struct {
	Key  string `mapstructure:"key"`
	Unit string `mapstructure:"unit"`
}

// ButtonsConfig configures the bedside GPIO buttons.
type ButtonsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Chip     string        `mapstructure:"chip"`
	Pins     PinsConfig    `mapstructure:"pins"`
	Poll     time.Duration `mapstructure:"poll"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type PinsConfig struct {
	Prev int `mapstructure:"prev"`
	Next int `mapstructure:"next"`
	Live int `mapstructure:"live"`
}

// Prepare points v at the config file and environment. An empty file
// searches for vitals-dashboard.yaml in the working and home directories.
func Prepare(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("vitals-dashboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix("VITALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// SetDefaults registers every scalar default. Environment overrides only
// reach Unmarshal for keys viper already knows, so each key is listed.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("patient", DefaultPatient)
	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("feed.snapshot", BackendRedis)
	v.SetDefault("feed.live", BackendRedis)
	v.SetDefault("feed.redis.addr", "localhost:6379")
	v.SetDefault("feed.redis.password", "")
	v.SetDefault("feed.redis.db", 0)
	v.SetDefault("feed.redis.prefix", "vitals")
	v.SetDefault("feed.firebase.url", "")
	v.SetDefault("feed.firebase.secret", "")
	v.SetDefault("feed.firebase.timeout", "10s")
	v.SetDefault("feed.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("feed.mqtt.client_id", "vitals-dashboard")
	v.SetDefault("feed.mqtt.username", "")
	v.SetDefault("feed.mqtt.password", "")
	v.SetDefault("feed.mqtt.topic_prefix", "vitals")
	v.SetDefault("feed.mqtt.qos", 1)

	v.SetDefault("refresh_interval", DefaultRefreshInterval.String())
	v.SetDefault("fetch_timeout", DefaultFetchTimeout.String())

	v.SetDefault("dashboard.window", DefaultWindow)
	v.SetDefault("dashboard.chart_metric", string(vitals.KeyHeartRate))
	v.SetDefault("dashboard.timezone", "Local")

	opts := vitals.DefaultOptions()
	v.SetDefault("policy.out_of_range", string(opts.OutOfRange))
	v.SetDefault("policy.unknown_category", string(opts.UnknownCategory))
	v.SetDefault("policy.sentinels", string(opts.Sentinels))
	v.SetDefault("policy.count_warnings", opts.CountWarnings)
	v.SetDefault("policy.unit_fallback", "")

	v.SetDefault("buttons.enabled", false)
	v.SetDefault("buttons.chip", "gpiochip0")
	v.SetDefault("buttons.pins.prev", 17)
	v.SetDefault("buttons.pins.next", 27)
	v.SetDefault("buttons.pins.live", 22)
	v.SetDefault("buttons.poll", "50ms")
	v.SetDefault("buttons.debounce", "50ms")
}

// Load reads the config file (a missing file is fine), unmarshals the
// merged settings and validates them.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and the policy tables.
func (c *Config) Validate() error {
	if c.Patient == "" {
		return errors.New("patient must not be empty")
	}

	switch c.Feed.Snapshot {
	case BackendRedis:
	case BackendFirebase:
		if c.Feed.Firebase.URL == "" {
			return errors.New("feed.firebase.url is required when feed.snapshot is firebase")
		}
	default:
		return fmt.Errorf("invalid feed.snapshot '%s'. must be redis, firebase", c.Feed.Snapshot)
	}
	switch c.Feed.Live {
	case BackendRedis:
	case BackendMQTT:
		if c.Feed.MQTT.Broker == "" {
			return errors.New("feed.mqtt.broker is required when feed.live is mqtt")
		}
		if c.Feed.MQTT.QoS < 0 || c.Feed.MQTT.QoS > 2 {
			return fmt.Errorf("feed.mqtt.qos must be 0, 1 or 2 (received %d)", c.Feed.MQTT.QoS)
		}
	default:
		return fmt.Errorf("invalid feed.live '%s'. must be redis, mqtt", c.Feed.Live)
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be greater than 0 (received %v)", c.RefreshInterval)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be greater than 0 (received %v)", c.FetchTimeout)
	}
	if c.Dashboard.Window <= 0 || c.Dashboard.Window > MaxWindow {
		return fmt.Errorf("dashboard.window must be greater than 0 and cannot exceed %d (received %d)", MaxWindow, c.Dashboard.Window)
	}
	if c.Dashboard.ChartMetric == "" {
		return errors.New("dashboard.chart_metric must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Buttons.Enabled {
		if c.Buttons.Poll <= 0 {
			return fmt.Errorf("buttons.poll must be greater than 0 (received %v)", c.Buttons.Poll)
		}
		if c.Buttons.Debounce < 0 {
			return fmt.Errorf("buttons.debounce must not be negative (received %v)", c.Buttons.Debounce)
		}
	}

	for _, a := range c.Policy.Aliases {
		if a.Raw == "" || a.Key == "" {
			return fmt.Errorf("policy alias needs raw and key (received raw=%q key=%q)", a.Raw, a.Key)
		}
	}
	for _, u := range c.Policy.Units {
		if u.Key == "" {
			return fmt.Errorf("policy unit needs key (received unit=%q)", u.Unit)
		}
	}
	if _, err := c.NewPolicy(); err != nil {
		return err
	}
	return nil
}

// Location resolves the dashboard timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Dashboard.Timezone == "" || c.Dashboard.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Dashboard.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid dashboard.timezone '%s': %w", c.Dashboard.Timezone, err)
	}
	return loc, nil
}

// Options converts the strictness settings.
func (c *Config) Options() vitals.Options {
	return vitals.Options{
		OutOfRange:      vitals.Status(strings.ToLower(c.Policy.OutOfRange)),
		UnknownCategory: vitals.Status(strings.ToLower(c.Policy.UnknownCategory)),
		Sentinels:       vitals.SentinelHandling(strings.ToLower(c.Policy.Sentinels)),
		CountWarnings:   c.Policy.CountWarnings,
	}
}

// Rules merges the configured rules over vitals.DefaultRules.
func (c *Config) Rules() (map[vitals.CanonicalKey]vitals.Rule, error) {
	rules := vitals.DefaultRules()
	for i, rc := range c.Policy.Rules {
		if rc.Key == "" {
			return nil, fmt.Errorf("policy rule %d needs key", i)
		}
		rule, err := rc.rule()
		if err != nil {
			return nil, fmt.Errorf("policy rule %s: %w", rc.Key, err)
		}
		rules[vitals.CanonicalKey(rc.Key)] = rule
	}
	return rules, nil
}

func (rc RuleConfig) rule() (vitals.Rule, error) {
	hasRange := rc.Min != nil || rc.Max != nil
	hasEnum := len(rc.Accepted) > 0
	switch {
	case hasRange && hasEnum:
		return vitals.Rule{}, errors.New("set either min/max or accepted, not both")
	case hasRange:
		if rc.Min == nil || rc.Max == nil {
			return vitals.Rule{}, errors.New("range rule needs both min and max")
		}
		return vitals.Rule{
			Range: &vitals.RangeRule{
				Min:       *rc.Min,
				Max:       *rc.Max,
				Normal:    rc.Normal,
				Tolerance: rc.Tolerance,
			},
			Sentinels: rc.Sentinels,
		}, nil
	case hasEnum:
		return vitals.Rule{
			Enum:      &vitals.EnumRule{Accepted: rc.Accepted},
			Sentinels: rc.Sentinels,
		}, nil
	default:
		return vitals.Rule{}, errors.New("rule needs min/max or accepted")
	}
}

// Aliases merges the configured aliases over vitals.DefaultAliases.
func (c *Config) Aliases() map[string]vitals.CanonicalKey {
	aliases := vitals.DefaultAliases()
	for _, a := range c.Policy.Aliases {
		aliases[a.Raw] = vitals.CanonicalKey(a.Key)
	}
	return aliases
}

// Units merges the configured units over vitals.DefaultUnits.
func (c *Config) Units() vitals.UnitCatalog {
	units := vitals.DefaultUnits()
	for _, u := range c.Policy.Units {
		units[vitals.CanonicalKey(u.Key)] = u.Unit
	}
	return vitals.NewUnitCatalog(units, c.Policy.UnitFallback)
}

// NewPolicy builds the classification policy.
func (c *Config) NewPolicy() (*vitals.Policy, error) {
	rules, err := c.Rules()
	if err != nil {
		return nil, err
	}
	policy, err := vitals.NewPolicy(rules, c.Options())
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return policy, nil
}

// NewNormalizer builds the normalizer from the policy tables.
func (c *Config) NewNormalizer() (*vitals.Normalizer, error) {
	policy, err := c.NewPolicy()
	if err != nil {
		return nil, err
	}
	return vitals.NewNormalizer(c.Aliases(), policy, c.Units()), nil
}

// DashboardConfig converts the display settings for the controller.
func (c *Config) DashboardConfig() (dashboard.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return dashboard.Config{}, err
	}
	dc := dashboard.DefaultConfig()
	dc.Window = c.Dashboard.Window
	dc.ChartMetric = vitals.CanonicalKey(c.Dashboard.ChartMetric)
	dc.RefreshInterval = c.RefreshInterval
	dc.FetchTimeout = c.FetchTimeout
	dc.Location = loc
	return dc, nil
}
