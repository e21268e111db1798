package configure

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/snowxfer/cmd/util"
	"github.com/sidkik/snowxfer/pkg/access"
	"github.com/sidkik/snowxfer/pkg/config"
	"github.com/sidkik/snowxfer/pkg/device"
	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/profile"
	"github.com/sidkik/snowxfer/pkg/runner"
)

// Mocked for unit testing.
var (
	stdout     io.Writer = os.Stdout
	newRunner            = func() runner.Runner { return runner.New() }
	loadConfig           = config.Load
	updateUser           = config.UpdateUser
	clock                = clockwork.NewRealClock()
	newRegistry          = func(cfg config.User) device.Registry {
		return device.FileRegistry{Path: cfg.DeviceRegistryPath}
	}
	newStore = util.ProfileStore
)

// New creates a new `configure` command.
func New() *cobra.Command {
	var d device.Device
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Unlock a Snowball Edge and create an AWS CLI profile for it",
		Long: "Unlock a Snowball Edge, fetch its access credentials, and store them\n" +
			"as an AWS CLI profile. Running it again against the same device reuses\n" +
			"the existing unlock and profile.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), d); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&d.ManifestPath, "manifest", "m", "",
		"Path to the manifest file downloaded for the device")
	cmd.Flags().StringVarP(&d.UnlockCode, "unlock-code", "u", "",
		"Unlock code of the device")
	cmd.Flags().StringVarP(&d.IP, "ip", "i", "",
		"IP address of the device")
	for _, name := range []string{"manifest", "unlock-code", "ip"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func run(ctx context.Context, d device.Device) error {
	if err := d.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig(config.User{IP: d.IP})
	if err != nil {
		return errors.WithContext(err, "load config")
	}

	r := newRunner()
	if _, err := device.CheckClientVersion(ctx, r, cfg.MinClientVersion); err != nil {
		return errors.WithContext(err, "check management client")
	}

	unlocker := device.NewUnlocker(r, newRegistry(cfg),
		time.Duration(cfg.UnlockSettleSeconds)*time.Second)
	unlocker.Clock = clock
	deviceProfile, err := unlocker.EnsureUnlocked(ctx, d)
	if err != nil {
		return errors.WithContext(err, "unlock")
	}

	creds, err := device.Provisioner{Runner: r}.Provision(ctx, deviceProfile)
	if err != nil {
		return errors.WithContext(err, "provision credentials")
	}

	cliProfile, err := profile.NewConfigurator(newStore(cfg)).
		ResolveLocalProfile(creds.AccessKey, creds.SecretKey)
	if err != nil {
		return errors.WithContext(err, "configure profile")
	}

	err = updateUser(func(u *config.User) {
		u.Profile = cliProfile
		u.IP = d.IP
	})
	if err != nil {
		return errors.WithContext(err, "save profile to config")
	}

	checker := access.Checker{
		Runner:  r,
		Timeout: time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
	}
	reachable, err := checker.Probe(ctx, cliProfile, d.S3Endpoint())
	if err != nil {
		var timeout errors.AccessTimeout
		if errors.As(err, &timeout) {
			log.WithError(err).Warn("The device is not responding. Check the config and IP.")
		} else {
			log.WithError(err).Warn("Failed to list buckets on the device")
		}
	}

	if reachable {
		fmt.Fprintf(stdout, "The Snowball Edge is now accessible with the AWS CLI using:\n"+
			"Profile:  %s\nEndpoint: %s\n", cliProfile, d.S3Endpoint())
	}
	return nil
}
