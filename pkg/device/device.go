// Package device drives the appliance's management client: it unlocks the
// device at most once and fetches the credentials the device issues.
package device

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/crypto/blake2b"

	"github.com/sidkik/snowxfer/pkg/errors"
)

// fs is used for mock tests. It will be overridden by afero.NewMemMapFs()
// in the tests.
var fs = afero.NewOsFs()

// clientBinary is the appliance's management client.
const clientBinary = "snowballEdge"

// ProfilePrefix is prepended to the device ID to name the profile created
// when this tool unlocks a device.
const ProfilePrefix = "snow-"

var unlockCodePattern = regexp.MustCompile(`^([a-f0-9]{5}-){4}[a-f0-9]{5}$`)

// Device identifies a single appliance. It is immutable for the duration of a
// run.
type Device struct {
	ManifestPath string
	UnlockCode   string
	IP           string
}

// ID returns a stable identifier for the device, derived from its unlock
// code.
func (d Device) ID() string {
	sum := blake2b.Sum256([]byte(d.UnlockCode))
	return hex.EncodeToString(sum[:])[:12]
}

// ProfileName returns the registry profile name used when this tool performs
// the unlock.
func (d Device) ProfileName() string {
	return ProfilePrefix + d.ID()
}

// ManagementEndpoint is the endpoint of the device management API.
func (d Device) ManagementEndpoint() string {
	return "https://" + d.IP
}

// S3Endpoint is the endpoint of the device's S3-compatible object API.
func (d Device) S3Endpoint() string {
	return S3Endpoint(d.IP)
}

// S3Endpoint returns the object API endpoint for the device at ip.
func S3Endpoint(ip string) string {
	return fmt.Sprintf("http://%s:8080", ip)
}

// Validate checks every field of the device before any external call is
// made.
func (d Device) Validate() error {
	if err := ValidateManifestPath(d.ManifestPath); err != nil {
		return err
	}
	if err := ValidateUnlockCode(d.UnlockCode); err != nil {
		return err
	}
	return ValidateIP(d.IP)
}

// ValidateUnlockCode checks that code is 5 groups of 5 lowercase hex
// characters separated by dashes.
func ValidateUnlockCode(code string) error {
	if !unlockCodePattern.MatchString(code) {
		return errors.ValidationError{
			Field:  "unlock code",
			Value:  code,
			Reason: "should be 5 groups of 5 hexadecimal characters separated by dashes",
		}
	}
	return nil
}

// ValidateIP checks that ip is a dotted quad with every octet in 0-255.
func ValidateIP(ip string) error {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil || strings.Count(ip, ".") != 3 {
		return errors.ValidationError{
			Field:  "IP address",
			Value:  ip,
			Reason: "should be 4 numbers between 0 and 255 separated by periods",
		}
	}
	return nil
}

// ValidateManifestPath checks that the manifest file exists.
func ValidateManifestPath(path string) error {
	info, err := fs.Stat(path)
	switch {
	case os.IsNotExist(err):
		return errors.ValidationError{Field: "manifest path", Value: path, Reason: "file does not exist"}
	case err != nil:
		return errors.WithContext(err, "stat manifest")
	case info.IsDir():
		return errors.ValidationError{Field: "manifest path", Value: path, Reason: "is a directory"}
	}
	return nil
}
