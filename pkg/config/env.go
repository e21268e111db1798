package config

import (
	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"

	"github.com/sidkik/snowxfer/pkg/errors"
)

// EnvPrefix is prepended to the `env` tag of every User field.
const EnvPrefix = "SNOWXFER_"

// VerboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const VerboseLogKey = EnvPrefix + "LOG_VERBOSE"

func parseEnv() (User, error) {
	var cfg User
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return User{}, err
	}
	return cfg, nil
}

// merge combines the layers in order of precedence. A field is taken from
// the first layer that sets it.
func merge(layers ...User) (User, error) {
	var merged User
	for _, layer := range layers {
		if err := mergo.Merge(&merged, layer); err != nil {
			return User{}, errors.WithContext(err, "merge config")
		}
	}
	return merged, nil
}
