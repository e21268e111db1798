package version

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/snowxfer/pkg/config"
	"github.com/sidkik/snowxfer/pkg/runner"
	"github.com/sidkik/snowxfer/pkg/version"
)

func TestVersion(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stdout = out
	loadConfig = func(config.User) (config.User, error) {
		return config.Defaults(), nil
	}
	newRunner = func() runner.Runner {
		return &runner.Fake{Handle: func(runner.Command) (runner.Result, error) {
			return runner.Result{Stdout: "Snowball Edge client version: 1.2.0\n"}, nil
		}}
	}

	require.NoError(t, run(context.Background()))
	assert.Equal(t, "snowxfer version: "+version.Version+"\n"+
		"client version:   1.2.0\n", out.String())
}
