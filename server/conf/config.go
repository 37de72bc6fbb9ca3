package conf

import (
	"os"
	"strings"

	jerrors "github.com/juju/errors"
	"gopkg.in/ini.v1"

	"github.com/zhukovaskychina/xrowstore/logger"
	"github.com/zhukovaskychina/xrowstore/server/storage/pager"
)

// DefaultConfigPath is read when no -configPath is given.
const DefaultConfigPath = "conf/rowstore.ini"

type CommandLineArgs struct {
	ConfigPath string
	// DataFile overrides rowstore.data_file when set.
	DataFile string
}

/*
[rowstore]
data_file = rowstore.db
max_pages = 100

[logs]
log_error =
log_infos =
log_level = warn

[snapshot]
codec = snappy
*/
type Cfg struct {
	Raw *ini.File

	// rowstore
	DataFile string `default:"rowstore.db"`
	MaxPages int    `default:"100"`

	// logs
	LogError string `default:""`
	LogInfos string `default:""`
	LogLevel string `default:"warn"`

	// snapshot
	SnapshotCodec string `default:"snappy"`
}

func NewCfg() *Cfg {
	return &Cfg{
		Raw:           ini.Empty(),
		DataFile:      "rowstore.db",
		MaxPages:      pager.DefaultMaxPages,
		LogLevel:      "warn",
		SnapshotCodec: "snappy",
	}
}

// Load reads the ini file named by args, or DefaultConfigPath. A missing file
// leaves the defaults in place; a malformed one is an error.
func (cfg *Cfg) Load(args *CommandLineArgs) (*Cfg, error) {
	iniFile, err := cfg.loadConfiguration(args)
	if err != nil {
		return nil, err
	}
	cfg.Raw = iniFile

	if err := cfg.parseRowstoreCfg(cfg.Raw.Section("rowstore")); err != nil {
		return nil, err
	}
	cfg.parseLogsCfg(cfg.Raw.Section("logs"))
	cfg.parseSnapshotCfg(cfg.Raw.Section("snapshot"))

	if args != nil && args.DataFile != "" {
		cfg.DataFile = args.DataFile
	}
	return cfg, nil
}

func (cfg *Cfg) loadConfiguration(args *CommandLineArgs) (*ini.File, error) {
	configFile := DefaultConfigPath
	explicit := args != nil && args.ConfigPath != ""
	if explicit {
		configFile = args.ConfigPath
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if explicit {
			return nil, jerrors.NotFoundf("config file %s", configFile)
		}
		logger.Debugf("config file %s not found, using defaults", configFile)
		return ini.Empty(), nil
	}

	parsedFile, err := ini.Load(configFile)
	if err != nil {
		return nil, jerrors.Annotatef(err, "parse config file %s", configFile)
	}

	logger.Debugf("loaded config file %s", configFile)
	return parsedFile, nil
}

func (cfg *Cfg) parseRowstoreCfg(section *ini.Section) error {
	cfg.DataFile = valueAsString(section, "data_file", cfg.DataFile)

	maxPages := section.Key("max_pages").MustInt(cfg.MaxPages)
	if maxPages <= 0 || maxPages > pager.MaxPagesLimit {
		return jerrors.NotValidf("rowstore.max_pages %d (want 1..%d)", maxPages, pager.MaxPagesLimit)
	}
	cfg.MaxPages = maxPages
	return nil
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) {
	cfg.LogError = valueAsString(section, "log_error", cfg.LogError)
	cfg.LogInfos = valueAsString(section, "log_infos", cfg.LogInfos)

	logLevel := strings.ToLower(valueAsString(section, "log_level", cfg.LogLevel))
	switch logLevel {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		cfg.LogLevel = logLevel
	default:
		logger.Warnf("invalid log level '%s', using '%s'", logLevel, cfg.LogLevel)
	}
}

func (cfg *Cfg) parseSnapshotCfg(section *ini.Section) {
	cfg.SnapshotCodec = strings.ToLower(valueAsString(section, "codec", cfg.SnapshotCodec))
}

func valueAsString(section *ini.Section, keyName string, defaultValue string) string {
	if section == nil {
		return defaultValue
	}
	value := strings.TrimSpace(section.Key(keyName).MustString(defaultValue))
	if value == "" {
		return defaultValue
	}
	return value
}

// GetString returns "section.key" from the raw file, or "" when unset.
func (cfg *Cfg) GetString(key string) string {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) < 2 {
		return ""
	}
	return valueAsString(cfg.Raw.Section(parts[0]), parts[1], "")
}
