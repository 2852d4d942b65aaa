// Package config loads application settings from configs/config.yml and
// SMART_CLIMATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"smart_climate/internal/climate"

	"github.com/spf13/viper"
)

// Backends accepted for sensors.source and devices.target.
const (
	BackendHomeAssistant = "homeassistant"
	BackendMQTT          = "mqtt"
)

// EnvPrefix is prepended to every environment override, e.g. SMART_CLIMATE_PORT.
const EnvPrefix = "SMART_CLIMATE"

type Config struct {
	Port          string              `mapstructure:"port"`
	Log           LogConfig           `mapstructure:"log"`
	DB            DBConfig            `mapstructure:"db"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Sensors       SensorsConfig       `mapstructure:"sensors"`
	Devices       DevicesConfig       `mapstructure:"devices"`
	HomeAssistant HomeAssistantConfig `mapstructure:"homeassistant"`
	MQTT          MQTTConfig          `mapstructure:"mqtt"`
	Archive       ArchiveConfig       `mapstructure:"archive"`
	Controllers   []ControllerConfig  `mapstructure:"controllers"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type HTTPConfig struct {
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type SensorsConfig struct {
	Source string `mapstructure:"source"`
}

type DevicesConfig struct {
	Target string `mapstructure:"target"`
}

type HomeAssistantConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MQTTConfig struct {
	Broker       string        `mapstructure:"broker"`
	ClientID     string        `mapstructure:"client_id"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	QoS          int           `mapstructure:"qos"`
	TopicPrefix  string        `mapstructure:"topic_prefix"`
	SensorMaxAge time.Duration `mapstructure:"sensor_max_age"`
	Sensors      []SensorTopic `mapstructure:"sensors"`
}

// SensorTopic maps a sensor id, as used by indoor_sensor/outdoor_sensor, to
// the topic its readings are published on. It is a list entry rather than a
// map key because sensor ids contain dots.
type SensorTopic struct {
	ID    string `mapstructure:"id"`
	Topic string `mapstructure:"topic"`
}

// SensorTopics returns the configured sensors keyed by id.
func (m MQTTConfig) SensorTopics() map[string]string {
	out := make(map[string]string, len(m.Sensors))
	for _, s := range m.Sensors {
		out[s.ID] = s.Topic
	}
	return out
}

type ArchiveConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Bucket       string        `mapstructure:"bucket"`
	Prefix       string        `mapstructure:"prefix"`
	Region       string        `mapstructure:"region"`
	Endpoint     string        `mapstructure:"endpoint"`
	UsePathStyle bool          `mapstructure:"use_path_style"`
	Interval     time.Duration `mapstructure:"interval"`
}

// ControllerConfig is one device pair as written in the config file. Unset
// optional fields take the climate package defaults.
type ControllerConfig struct {
	ID               string `mapstructure:"id"`
	Name             string `mapstructure:"name"`
	MainClimate      string `mapstructure:"main_climate"`
	SecondClimate    string `mapstructure:"second_climate"`
	IndoorSensor     string `mapstructure:"indoor_sensor"`
	OutdoorSensor    string `mapstructure:"outdoor_sensor"`
	InitialPreset    string `mapstructure:"initial_preset"`
	ModeSyncTemplate string `mapstructure:"mode_sync_template"`

	MainThreshold        *float64 `mapstructure:"main_threshold"`
	SecondThreshold      *float64 `mapstructure:"second_threshold"`
	OutdoorHotThreshold  *float64 `mapstructure:"outdoor_hot_threshold"`
	OutdoorColdThreshold *float64 `mapstructure:"outdoor_cold_threshold"`
	MainOffset           *float64 `mapstructure:"main_offset"`
	SecondOffset         *float64 `mapstructure:"second_offset"`

	// DisableOutdoorHot turns the default outdoor hot threshold off.
	DisableOutdoorHot bool `mapstructure:"disable_outdoor_hot"`

	HeatingPresets climate.Presets `mapstructure:"heating_presets"`
	CoolingPresets climate.Presets `mapstructure:"cooling_presets"`

	MinRuntime             *time.Duration `mapstructure:"min_runtime"`
	SkipMinRuntimeOnPreset *bool          `mapstructure:"skip_min_runtime_on_preset"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("http.read_header_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("scheduler.interval", 60*time.Second)
	v.SetDefault("sensors.source", BackendHomeAssistant)
	v.SetDefault("devices.target", BackendHomeAssistant)
	v.SetDefault("homeassistant.url", "")
	v.SetDefault("homeassistant.token", "")
	v.SetDefault("homeassistant.timeout", 10*time.Second)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "smart-climate")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.topic_prefix", "climate")
	v.SetDefault("mqtt.sensor_max_age", 10*time.Minute)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "climate-events")
	v.SetDefault("archive.region", "")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.use_path_style", false)
	v.SetDefault("archive.interval", time.Hour)
}

// Load reads config.yml from the given directories (default "configs" and
// "."). A missing file is not an error; env overrides and defaults still apply.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints and every controller.
func (c *Config) Validate() error {
	if len(c.Controllers) == 0 {
		return errors.New("config: at least one controller is required")
	}
	for _, b := range []string{c.Sensors.Source, c.Devices.Target} {
		if b != BackendHomeAssistant && b != BackendMQTT {
			return fmt.Errorf("config: unknown backend %q", b)
		}
	}
	if c.UsesMQTT() && c.MQTT.Broker == "" {
		return errors.New("config: mqtt.broker is required when mqtt is used")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("config: mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if err := c.validateSensorTopics(); err != nil {
		return err
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return errors.New("config: archive.bucket is required when the archive is enabled")
	}

	seen := make(map[string]struct{}, len(c.Controllers))
	for _, cc := range c.Controllers {
		if _, dup := seen[cc.ID]; dup {
			return fmt.Errorf("config: duplicate controller id %q", cc.ID)
		}
		seen[cc.ID] = struct{}{}
		if err := cc.Climate().Validate(); err != nil {
			return fmt.Errorf("config: controller %q: %w", cc.ID, err)
		}
	}
	return nil
}

func (c *Config) validateSensorTopics() error {
	topics := make(map[string]string, len(c.MQTT.Sensors))
	for i, st := range c.MQTT.Sensors {
		if st.ID == "" || st.Topic == "" {
			return fmt.Errorf("config: mqtt.sensors[%d]: id and topic are required", i)
		}
		if _, dup := topics[st.ID]; dup {
			return fmt.Errorf("config: mqtt.sensors: duplicate sensor %q", st.ID)
		}
		topics[st.ID] = st.Topic
	}
	if c.Sensors.Source != BackendMQTT {
		return nil
	}
	for _, cc := range c.Controllers {
		for _, id := range []string{cc.IndoorSensor, cc.OutdoorSensor} {
			if _, ok := topics[id]; id != "" && !ok {
				return fmt.Errorf("config: controller %q: sensor %q has no mqtt topic", cc.ID, id)
			}
		}
	}
	return nil
}

// UsesMQTT reports whether sensors or devices go through the broker.
func (c *Config) UsesMQTT() bool {
	return c.Sensors.Source == BackendMQTT || c.Devices.Target == BackendMQTT
}

// ClimateConfigs returns one climate.Config per configured controller.
func (c *Config) ClimateConfigs() []climate.Config {
	out := make([]climate.Config, 0, len(c.Controllers))
	for _, cc := range c.Controllers {
		out = append(out, cc.Climate())
	}
	return out
}

// Climate overlays the configured values on climate.DefaultConfig.
func (cc ControllerConfig) Climate() climate.Config {
	cfg := climate.DefaultConfig()
	cfg.ID = cc.ID
	cfg.Name = cc.Name
	cfg.PrimaryDevice = cc.MainClimate
	cfg.SecondaryDevice = cc.SecondClimate
	cfg.IndoorSensor = cc.IndoorSensor
	cfg.OutdoorSensor = cc.OutdoorSensor
	cfg.ModeSyncTemplate = cc.ModeSyncTemplate

	setFloat(&cfg.PrimaryThreshold, cc.MainThreshold)
	setFloat(&cfg.SecondaryThreshold, cc.SecondThreshold)
	setFloat(&cfg.PrimaryOffset, cc.MainOffset)
	setFloat(&cfg.SecondaryOffset, cc.SecondOffset)

	switch {
	case cc.DisableOutdoorHot:
		cfg.OutdoorHotThreshold = nil
	case cc.OutdoorHotThreshold != nil:
		cfg.OutdoorHotThreshold = climate.Float(*cc.OutdoorHotThreshold)
	}
	if cc.OutdoorColdThreshold != nil {
		cfg.OutdoorColdThreshold = climate.Float(*cc.OutdoorColdThreshold)
	}

	if cc.HeatingPresets != nil {
		cfg.HeatingPresets = cc.HeatingPresets.Clone()
	}
	if cc.CoolingPresets != nil {
		cfg.CoolingPresets = cc.CoolingPresets.Clone()
	}
	if cc.MinRuntime != nil {
		cfg.MinRuntime = *cc.MinRuntime
	}
	if cc.SkipMinRuntimeOnPreset != nil {
		cfg.SkipMinRuntimeOnPreset = *cc.SkipMinRuntimeOnPreset
	}
	if cc.InitialPreset != "" {
		cfg.InitialPreset = cc.InitialPreset
	}
	return cfg
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
