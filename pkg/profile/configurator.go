package profile

import (
	"encoding/hex"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/sidkik/snowxfer/pkg/errors"
)

// NamePrefix is prepended to the names of the profiles created by snowxfer.
const NamePrefix = "snowcli-"

// Configurator resolves device credentials to a local profile.
type Configurator struct {
	Store Store
	Clock clockwork.Clock
}

// NewConfigurator returns a Configurator that uses the real clock.
func NewConfigurator(store Store) Configurator {
	return Configurator{Store: store, Clock: clockwork.NewRealClock()}
}

// ResolveLocalProfile returns the profile bound to accessKey, creating it if
// it doesn't exist yet. An existing profile is returned unchanged, so
// repeated runs converge on the same profile.
func (c Configurator) ResolveLocalProfile(accessKey, secretKey string) (string, error) {
	existing, ok, err := c.Store.FindByAccessKey(accessKey)
	if err != nil {
		return "", errors.WithContext(err, "find profile")
	}
	if ok {
		log.WithField("profile", existing.Name).Info("Reusing existing profile for access key")
		return existing.Name, nil
	}

	p := Profile{
		Name:      Name(accessKey),
		AccessKey: accessKey,
		SecretKey: secretKey,
		CreatedAt: c.Clock.Now(),
	}
	if err := c.Store.Create(p); err != nil {
		return "", errors.WithContext(err, "create profile")
	}
	log.WithField("profile", p.Name).Info("Created profile")
	return p.Name, nil
}

// Name returns the profile name for accessKey.
func Name(accessKey string) string {
	sum := blake2b.Sum256([]byte(accessKey))
	return NamePrefix + hex.EncodeToString(sum[:])[:12]
}

// ValidateExists checks that the profile is known to the store.
func ValidateExists(store Store, name string) error {
	names, err := store.Names()
	if err != nil {
		return errors.WithContext(err, "list profiles")
	}
	for _, known := range names {
		if known == name {
			return nil
		}
	}
	return errors.ValidationError{
		Field:  "profile",
		Value:  name,
		Reason: "must be listed by `aws configure list-profiles`",
	}
}
