package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/snowxfer/pkg/errors"
)

const (
	// UserConfigPath is the default path to the snowxfer user config.
	UserConfigPath = "~/.snowxfer.yaml"

	// InitialUserConfigVersion is the first version of the snowxfer user
	// config. Config files that do not specify a version will default to this
	// version.
	InitialUserConfigVersion = "v1alpha1"

	// SupportedUserConfigVersion is the supported version of the user config
	// of the current snowxfer binary.
	SupportedUserConfigVersion = "v1alpha1"
)

// User contains the settings shared by every snowxfer command. Each field can
// be set in the config file, or through an environment variable with the
// SNOWXFER_ prefix.
type User struct {
	Version string `json:"version,omitempty"`

	// Bucket is the destination bucket for both the appliance and the
	// archive tier.
	Bucket         string `json:"bucket,omitempty" env:"BUCKET"`
	SnowballPrefix string `json:"snowballPrefix,omitempty" env:"SNOWBALL_PREFIX"`
	ArchivePrefix  string `json:"archivePrefix,omitempty" env:"ARCHIVE_PREFIX"`

	// Profile and IP are written by `snowxfer configure` once the device is
	// reachable.
	Profile string `json:"profile,omitempty" env:"PROFILE"`
	IP      string `json:"ip,omitempty" env:"IP"`

	// ArchiveProfile and Region select the credentials used against the
	// cloud archive tier. An empty profile uses the default credential chain.
	ArchiveProfile string `json:"archiveProfile,omitempty" env:"ARCHIVE_PROFILE"`
	Region         string `json:"region,omitempty" env:"REGION"`

	Subtrees          []string `json:"subtrees,omitempty" env:"SUBTREES"`
	SidecarExtensions []string `json:"sidecarExtensions,omitempty" env:"SIDECAR_EXTENSIONS"`

	UnlockSettleSeconds int    `json:"unlockSettleSeconds,omitempty" env:"UNLOCK_SETTLE_SECONDS"`
	ProbeTimeoutSeconds int    `json:"probeTimeoutSeconds,omitempty" env:"PROBE_TIMEOUT_SECONDS"`
	MinClientVersion    string `json:"minClientVersion,omitempty" env:"MIN_CLIENT_VERSION"`

	DeviceRegistryPath string `json:"deviceRegistryPath,omitempty" env:"DEVICE_REGISTRY"`
	CredentialsPath    string `json:"credentialsPath,omitempty" env:"CREDENTIALS_FILE"`
	ClientConfigPath   string `json:"clientConfigPath,omitempty" env:"CLIENT_CONFIG_FILE"`
}

// parseUserErrTemplate is shown when the user config isn't valid yaml, or has
// fields of the wrong type or that don't exist. The yaml library's errors
// don't say where the problem is, so the parser's message is passed on.
const parseUserErrTemplate = "The snowxfer config %q could not be parsed.\n" +
	"Fix the file, or delete it and run `snowxfer config` to write a new one.\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The snowxfer config %q has version %q, but this "+
		"version of snowxfer reads %q.\n"+
		"Delete it and run `snowxfer config` to write a new one.",
		err.path, err.actual, err.exp)
}

// parseUserFile reads the user config at path. The version is checked before
// the strict unmarshal, so that a config written by another version of
// snowxfer is reported as such rather than as having unknown fields.
func parseUserFile(path string) (User, error) {
	configBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return User{}, errors.FileNotFound{Path: path}
		}
		return User{}, errors.WithContext(err, "read file")
	}

	config := User{Version: InitialUserConfigVersion}
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return User{}, errors.NewFriendlyError(parseUserErrTemplate, path, err)
	}

	if config.Version != SupportedUserConfigVersion {
		return User{}, incompatibleVersionError{path, SupportedUserConfigVersion, config.Version}
	}

	err = yaml.UnmarshalStrict(configBytes, &config, yaml.DisallowUnknownFields)
	if err != nil {
		return User{}, errors.NewFriendlyError(parseUserErrTemplate, path, err)
	}
	return config, nil
}

// Defaults returns the settings used when no other layer sets a field.
func Defaults() User {
	return User{
		Bucket:              "pami-dance-storage",
		SnowballPrefix:      "MPS-snowball",
		ArchivePrefix:       "MPS-deeparchive",
		Region:              "us-east-1",
		Subtrees:            []string{"Audio", "Video", "Film"},
		SidecarExtensions:   []string{".txt", ".json"},
		UnlockSettleSeconds: 30,
		ProbeTimeoutSeconds: 5,
		MinClientVersion:    "1.0.0",
		DeviceRegistryPath:  "~/.aws/snowball/config/snowball-edge.config",
		CredentialsPath:     "~/.aws/credentials",
		ClientConfigPath:    "~/.aws/config",
	}
}

// ParseUser attempts to parse the User stored in the default path. If the
// file doesn't exist, the returned error is an errors.FileNotFound.
func ParseUser() (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	config, err := parseUserFile(path)
	if err != nil {
		return User{}, errors.WithContext(err, "parse")
	}
	return config, nil
}

// Load builds the effective user config. Fields set in overrides win over the
// environment, which wins over the config file, which wins over Defaults. A
// missing config file is not an error.
func Load(overrides User) (User, error) {
	envCfg, err := parseEnv()
	if err != nil {
		return User{}, errors.WithContext(err, "parse environment")
	}

	fileCfg, err := ParseUser()
	if err != nil {
		var notFound errors.FileNotFound
		if !errors.As(err, &notFound) {
			return User{}, errors.WithContext(err, "parse user config")
		}
		log.WithField("path", notFound.Path).Debug("No user config file, using defaults")
		fileCfg = User{}
	}

	cfg, err := merge(overrides, envCfg, fileCfg, Defaults())
	if err != nil {
		return User{}, err
	}
	cfg.Version = SupportedUserConfigVersion

	for _, path := range []*string{&cfg.DeviceRegistryPath, &cfg.CredentialsPath, &cfg.ClientConfigPath} {
		*path, err = homedirExpand(*path)
		if err != nil {
			return User{}, errors.WithContext(err, "expand path")
		}
	}
	return cfg, nil
}

// WriteUser writes the given user config to disk.
func WriteUser(cfg User) error {
	cfg.Version = SupportedUserConfigVersion
	path, err := GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0600); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// UpdateUser applies update to the config stored on disk, creating the file
// if it doesn't exist yet. Only the file layer is modified, so values that
// came from the environment or defaults aren't persisted.
func UpdateUser(update func(*User)) error {
	cfg, err := ParseUser()
	if err != nil {
		var notFound errors.FileNotFound
		if !errors.As(err, &notFound) {
			return err
		}
		cfg = User{}
	}

	update(&cfg)
	return WriteUser(cfg)
}

// GetUserConfigPath returns the path to the user's snowxfer configuration.
// This path is expanded, so it can be directly passed to file operations.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}
