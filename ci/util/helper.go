package util

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/snowxfer/pkg/errors"
)

// AccessKey is the access key returned by the stub management client.
const AccessKey = "AKIACIEXAMPLE"

// UnlockCode is the unlock code that the stub device accepts.
const UnlockCode = "01234-56789-abcde-f0123-45678"

// snowballEdgeStub answers like an unlocked device.
const snowballEdgeStub = `#!/bin/sh
echo "snowballEdge $*" >> "$SNOWXFER_CI_CALLS"
case "$1" in
version) echo "Snowball Edge client version: 1.2.0" ;;
describe-device) echo '{"UnlockStatus": {"State": "UNLOCKED"}}' ;;
list-access-keys) echo '{"AccessKeyIds": ["` + AccessKey + `"]}' ;;
get-secret-access-key)
	printf '[snowballEdge]\naws_access_key_id = ` + AccessKey + `\naws_secret_access_key = secret\n' ;;
*) exit 1 ;;
esac
`

// awsStub uploads nothing, and lists the objects in $SNOWXFER_CI_LISTING as
// a single page.
const awsStub = `#!/bin/sh
echo "aws $*" >> "$SNOWXFER_CI_CALLS"
case "$1 $2" in
"s3 cp") cat > /dev/null ;;
"s3api list-objects-v2")
	case "$*" in
	*--start-after*) ;;
	*) cat "$SNOWXFER_CI_LISTING" ;;
	esac ;;
esac
`

// TestHelper runs the snowxfer binary in an isolated home directory, with
// stub versions of the external tools first in the PATH.
type TestHelper struct {
	Home        string
	binDir      string
	callsPath   string
	listingPath string
}

// NewTestHelper creates the home directory and the stub tools.
func NewTestHelper() (*TestHelper, error) {
	root, err := ioutil.TempDir("", "snowxfer-ci")
	if err != nil {
		return nil, errors.WithContext(err, "make temp dir")
	}

	helper := &TestHelper{
		Home:        filepath.Join(root, "home"),
		binDir:      filepath.Join(root, "bin"),
		callsPath:   filepath.Join(root, "calls"),
		listingPath: filepath.Join(root, "listing.json"),
	}
	for _, dir := range []string{helper.Home, helper.binDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.WithContext(err, "mkdir")
		}
	}

	stubs := map[string]string{
		"snowballEdge": snowballEdgeStub,
		"aws":          awsStub,
	}
	for name, script := range stubs {
		if err := ioutil.WriteFile(filepath.Join(helper.binDir, name), []byte(script), 0755); err != nil {
			return nil, errors.WithContext(err, "write "+name)
		}
	}

	if err := helper.SetListing(nil); err != nil {
		return nil, err
	}
	return helper, nil
}

// RegisterDevice adds the stub device to the device registry, as the
// management client does after an unlock.
func (helper *TestHelper) RegisterDevice(profile, manifestPath, ip string) error {
	path := filepath.Join(helper.Home, ".aws", "snowball", "config", "snowball-edge.config")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithContext(err, "mkdir")
	}

	registry := fmt.Sprintf(`{"version": 1, "profiles": {%q: `+
		`{"manifestPath": %q, "unlockCode": %q, "endpoint": "https://%s"}}}`,
		profile, manifestPath, UnlockCode, ip)
	return ioutil.WriteFile(path, []byte(registry), 0600)
}

// SetListing sets the objects returned by `aws s3api list-objects-v2`.
func (helper *TestHelper) SetListing(objects map[string]int64) error {
	var contents []string
	for key, size := range objects {
		contents = append(contents, fmt.Sprintf(`{"Key": %q, "Size": %d}`, key, size))
	}

	listing := ""
	if len(contents) != 0 {
		listing = `{"Contents": [` + strings.Join(contents, ", ") + `]}`
	}
	return ioutil.WriteFile(helper.listingPath, []byte(listing), 0644)
}

// Run runs the given snowxfer command, and returns its stdout.
func (helper *TestHelper) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "snowxfer", args...)
	cmd.Env = append(os.Environ(),
		"HOME="+helper.Home,
		"PATH="+helper.binDir+string(os.PathListSeparator)+os.Getenv("PATH"),
		"SNOWXFER_CI_CALLS="+helper.callsPath,
		"SNOWXFER_CI_LISTING="+helper.listingPath,
		"SNOWXFER_UNLOCK_SETTLE_SECONDS=1",
	)

	log.WithField("args", args).Info("Running snowxfer")
	out, err := cmd.Output()
	if exitErr, ok := err.(*exec.ExitError); ok {
		return out, fmt.Errorf("%s: stderr: %s", err, exitErr.Stderr)
	}
	return out, err
}

// Calls returns every invocation of a stub tool, in order.
func (helper *TestHelper) Calls() ([]string, error) {
	contents, err := ioutil.ReadFile(helper.callsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return strings.Split(strings.TrimSpace(string(contents)), "\n"), nil
}

// Cleanup removes the home directory and stub tools.
func (helper *TestHelper) Cleanup() {
	if err := os.RemoveAll(filepath.Dir(helper.Home)); err != nil {
		log.WithError(err).Warn("Failed to remove test directory")
	}
}
