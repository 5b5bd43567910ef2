package config

import (
	"time"

	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeyPluginsDir      = "plugins.dir"
	KeyHostDir         = "plugins.host_dir"
	KeyModulesDir      = "plugins.modules_dir"
	KeySourceMode      = "plugins.source_mode"
	KeyCacheTTL        = "plugins.cache_ttl"
	KeyWatch           = "plugins.watch"
	KeyWatchDebounce   = "plugins.watch_debounce"
	KeyEngineVersion   = "engine.version"
	KeyDataDir         = "data.dir"
	KeyEnvFile         = "env.file"
	KeyMasters         = "permissions.masters"
	KeyAdmins          = "permissions.admins"
	KeyLogLevel        = "log.level"
	KeyLogDevelopment  = "log.development"
	KeyMetricsAddr     = "metrics.addr"
	KeyConsoleUserID   = "console.user_id"
	KeyConsoleSelfID   = "console.self_id"
	defaultCacheTTL    = time.Minute
	defaultDebounce    = 500 * time.Millisecond
	defaultConsoleUser = "console"
)

// DefaultEngineVersion is used when neither the config nor the build sets
// an engine version.
const DefaultEngineVersion = "0.0.0"

// Settings is a typed snapshot of the host configuration.
type Settings struct {
	PluginsDir    string
	HostDir       string
	ModulesDir    string
	SourceMode    bool
	CacheTTL      time.Duration
	Watch         bool
	WatchDebounce time.Duration
	EngineVersion string
	DataDir       string
	EnvFile       string
	Masters       []string
	Admins        []string
	LogLevel      string
	LogDev        bool
	MetricsAddr   string
	ConsoleUserID string
	ConsoleSelfID string
}

// setDefaults registers the default value of every setting on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPluginsDir, "./plugins")
	v.SetDefault(KeyHostDir, ".")
	v.SetDefault(KeyModulesDir, "modules")
	v.SetDefault(KeySourceMode, false)
	v.SetDefault(KeyCacheTTL, defaultCacheTTL)
	v.SetDefault(KeyWatch, true)
	v.SetDefault(KeyWatchDebounce, defaultDebounce)
	v.SetDefault(KeyEngineVersion, DefaultEngineVersion)
	v.SetDefault(KeyDataDir, "./data")
	v.SetDefault(KeyEnvFile, "./.env")
	v.SetDefault(KeyMasters, []string{defaultConsoleUser})
	v.SetDefault(KeyAdmins, []string{})
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogDevelopment, false)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyConsoleUserID, defaultConsoleUser)
	v.SetDefault(KeyConsoleSelfID, "puni")
}

// Current returns the settings held by the global Viper instance.
// Call Load first.
func Current() Settings {
	return FromViper(viper.GetViper())
}

// FromViper reads a Settings snapshot from v, applying defaults for any
// key v does not define.
func FromViper(v *viper.Viper) Settings {
	setDefaults(v)
	return Settings{
		PluginsDir:    v.GetString(KeyPluginsDir),
		HostDir:       v.GetString(KeyHostDir),
		ModulesDir:    v.GetString(KeyModulesDir),
		SourceMode:    v.GetBool(KeySourceMode),
		CacheTTL:      v.GetDuration(KeyCacheTTL),
		Watch:         v.GetBool(KeyWatch),
		WatchDebounce: v.GetDuration(KeyWatchDebounce),
		EngineVersion: v.GetString(KeyEngineVersion),
		DataDir:       v.GetString(KeyDataDir),
		EnvFile:       v.GetString(KeyEnvFile),
		Masters:       v.GetStringSlice(KeyMasters),
		Admins:        v.GetStringSlice(KeyAdmins),
		LogLevel:      v.GetString(KeyLogLevel),
		LogDev:        v.GetBool(KeyLogDevelopment),
		MetricsAddr:   v.GetString(KeyMetricsAddr),
		ConsoleUserID: v.GetString(KeyConsoleUserID),
		ConsoleSelfID: v.GetString(KeyConsoleSelfID),
	}
}
