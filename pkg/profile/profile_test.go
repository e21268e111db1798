package profile

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/snowxfer/pkg/errors"
)

const (
	credsPath  = "/home/operator/.aws/credentials"
	configPath = "/home/operator/.aws/config"
)

func newFileStore(t *testing.T) FileStore {
	fs = afero.NewMemMapFs()
	return FileStore{CredentialsPath: credsPath, ConfigPath: configPath}
}

func TestResolveLocalProfileDedup(t *testing.T) {
	stores := map[string]func(*testing.T) Store{
		"Memory": func(*testing.T) Store { return &MemoryStore{} },
		"File":   func(t *testing.T) Store { return newFileStore(t) },
	}

	for name, newStore := range stores {
		newStore := newStore
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			c := Configurator{Store: store, Clock: clockwork.NewFakeClock()}

			first, err := c.ResolveLocalProfile("AKIA1", "secret1")
			require.NoError(t, err)
			assert.Equal(t, Name("AKIA1"), first)

			second, err := c.ResolveLocalProfile("AKIA1", "secret1")
			require.NoError(t, err)
			assert.Equal(t, first, second)

			other, err := c.ResolveLocalProfile("AKIA2", "secret2")
			require.NoError(t, err)
			assert.NotEqual(t, first, other)

			names, err := store.Names()
			require.NoError(t, err)
			assert.Len(t, names, 2)
		})
	}
}

func TestResolveLocalProfileExisting(t *testing.T) {
	store := newFileStore(t)
	require.NoError(t, afero.WriteFile(fs, credsPath, []byte(`[default]
aws_access_key_id = AKIADEFAULT
aws_secret_access_key = default-secret

[cli-20230101120000]
aws_access_key_id = AKIA1
aws_secret_access_key = old-secret
`), 0600))

	c := Configurator{Store: store, Clock: clockwork.NewFakeClock()}
	name, err := c.ResolveLocalProfile("AKIA1", "new-secret")
	require.NoError(t, err)
	assert.Equal(t, "cli-20230101120000", name)

	// The existing profile is left untouched.
	p, ok, err := store.FindByAccessKey("AKIA1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "old-secret", p.SecretKey)

	_, err = fs.Stat(configPath)
	assert.Error(t, err)
}

func TestFileStoreCreate(t *testing.T) {
	store := newFileStore(t)
	require.NoError(t, afero.WriteFile(fs, configPath, []byte("[default]\nregion = us-east-1\n"), 0600))

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Create(Profile{
		Name:      "snowcli-abc",
		AccessKey: "AKIA1",
		SecretKey: "s3cr3t/+key",
		CreatedAt: created,
	}))

	p, ok, err := store.FindByAccessKey("AKIA1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Profile{Name: "snowcli-abc", AccessKey: "AKIA1", SecretKey: "s3cr3t/+key"}, p)

	cfg, err := loadINI(configPath)
	require.NoError(t, err)
	assert.Equal(t, "snow", cfg.Section("profile snowcli-abc").Key("region").String())
	assert.Equal(t, "us-east-1", cfg.Section("default").Key("region").String())

	names, err := store.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "snowcli-abc"}, names)
}

func TestValidateExists(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.Create(Profile{Name: "snowcli-abc", AccessKey: "AKIA1"}))

	assert.NoError(t, ValidateExists(store, "snowcli-abc"))
	assert.Equal(t, errors.ValidationError{
		Field:  "profile",
		Value:  "missing",
		Reason: "must be listed by `aws configure list-profiles`",
	}, ValidateExists(store, "missing"))
}

func TestMemoryStoreDuplicateName(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.Create(Profile{Name: "p", AccessKey: "AKIA1"}))
	assert.Error(t, store.Create(Profile{Name: "p", AccessKey: "AKIA2"}))
}
