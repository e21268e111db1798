package device

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
)

// State is the lock state reported by the device.
type State string

const (
	// Locked devices must be unlocked before they serve any requests.
	Locked State = "LOCKED"

	// Unlocking devices have accepted an unlock but aren't ready yet.
	Unlocking State = "UNLOCKING"

	// Unlocked devices are ready.
	Unlocked State = "UNLOCKED"
)

// DefaultSettle is how long the device is given to finish unlocking.
const DefaultSettle = 30 * time.Second

type describeResponse struct {
	DeviceID     string `json:"DeviceId"`
	UnlockStatus struct {
		State State `json:"State"`
	} `json:"UnlockStatus"`
}

// Unlocker unlocks devices through the management client. A device is never
// unlocked twice: if it's already unlocked, the existing registry profile is
// reused.
type Unlocker struct {
	Runner   runner.Runner
	Registry Registry
	Clock    clockwork.Clock

	// Settle is how long to wait after an unlock before checking that it
	// took effect.
	Settle time.Duration
}

// NewUnlocker returns an Unlocker that uses the real clock.
func NewUnlocker(r runner.Runner, reg Registry, settle time.Duration) Unlocker {
	return Unlocker{
		Runner:   r,
		Registry: reg,
		Clock:    clockwork.NewRealClock(),
		Settle:   settle,
	}
}

// EnsureUnlocked makes sure that the device is unlocked, and returns the name
// of the registry profile that can be used to manage it.
func (u Unlocker) EnsureUnlocked(ctx context.Context, d Device) (string, error) {
	state, err := u.Describe(ctx, d)
	if err != nil {
		return "", errors.WithContext(err, "describe device")
	}

	if state == Unlocking {
		log.WithField("settle", u.Settle).Info("Device is unlocking. Waiting for it to finish")
		u.Clock.Sleep(u.Settle)

		state, err = u.Describe(ctx, d)
		if err != nil {
			return "", errors.WithContext(err, "describe device")
		}
	}

	switch state {
	case Unlocked:
		name, ok, err := FindByUnlockCode(u.Registry, d.UnlockCode)
		if err != nil {
			return "", errors.WithContext(err, "read device registry")
		}
		if !ok {
			return "", errors.WithContext(errors.ErrUnlockedUnconfigured, d.IP)
		}
		log.WithField("profile", name).Info("Device is already unlocked")
		return name, nil
	case Locked:
		return u.unlock(ctx, d)
	case Unlocking:
		return "", errors.UnlockFailure{
			Reason: "device is still unlocking after " + u.Settle.String(),
		}
	default:
		return "", errors.UnlockFailure{Reason: "device reported unknown state " + string(state)}
	}
}

func (u Unlocker) unlock(ctx context.Context, d Device) (string, error) {
	name, ok, err := FindByUnlockCode(u.Registry, d.UnlockCode)
	if err != nil {
		return "", errors.WithContext(err, "read device registry")
	}
	if !ok {
		name = d.ProfileName()
	}

	log.WithField("profile", name).Info("Unlocking device")
	_, err = u.Runner.Run(ctx, runner.Command{
		Name: clientBinary,
		Args: []string{"unlock-device",
			"--manifest-file", d.ManifestPath,
			"--unlock-code", d.UnlockCode,
			"--endpoint", d.ManagementEndpoint(),
			"--profile", name,
		},
	})
	if err != nil {
		return "", errors.WithContext(err, "unlock device")
	}

	u.Clock.Sleep(u.Settle)

	registered, err := HasProfile(u.Registry, name)
	if err != nil {
		return "", errors.WithContext(err, "read device registry")
	}
	if !registered {
		return "", errors.UnlockFailure{
			Profile: name,
			Reason:  "the profile was not added to the device registry",
		}
	}
	return name, nil
}

// Describe returns the lock state of the device.
func (u Unlocker) Describe(ctx context.Context, d Device) (State, error) {
	res, err := u.Runner.Run(ctx, runner.Command{
		Name: clientBinary,
		Args: []string{"describe-device",
			"--manifest-file", d.ManifestPath,
			"--unlock-code", d.UnlockCode,
			"--endpoint", d.ManagementEndpoint(),
		},
	})
	if err != nil {
		return "", err
	}

	var resp describeResponse
	if err := json.Unmarshal([]byte(res.Stdout), &resp); err != nil {
		return "", errors.WithContext(err, "parse describe-device response")
	}
	log.WithField("state", resp.UnlockStatus.State).Debug("Described device")
	return resp.UnlockStatus.State, nil
}
