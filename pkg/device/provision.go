package device

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-ini/ini"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
)

const (
	secretSection = "snowballEdge"
	secretKey     = "aws_secret_access_key"
)

// Credentials is a key pair issued by the device.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Provisioner fetches credentials from an unlocked device.
type Provisioner struct {
	Runner runner.Runner
}

// Provision returns the first access key of the device and its secret.
func (p Provisioner) Provision(ctx context.Context, profile string) (Credentials, error) {
	accessKey, err := p.FetchAccessKey(ctx, profile)
	if err != nil {
		return Credentials{}, errors.WithContext(err, "fetch access key")
	}

	secret, err := p.FetchSecretKey(ctx, profile, accessKey)
	if err != nil {
		return Credentials{}, errors.WithContext(err, "fetch secret key")
	}
	return Credentials{AccessKey: accessKey, SecretKey: secret}, nil
}

// FetchAccessKey returns the first access key listed by the device.
func (p Provisioner) FetchAccessKey(ctx context.Context, profile string) (string, error) {
	res, err := p.Runner.Run(ctx, runner.Command{
		Name: clientBinary,
		Args: []string{"list-access-keys", "--profile", profile},
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		AccessKeyIDs []string `json:"AccessKeyIds"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &resp); err != nil {
		return "", errors.WithContext(err, "parse access keys")
	}
	if len(resp.AccessKeyIDs) == 0 {
		return "", errors.ErrNoAccessKeys
	}
	return resp.AccessKeyIDs[0], nil
}

// FetchSecretKey returns the secret for accessKey. The device answers with
// INI text, and the secret is only returned if it's present and non-empty.
func (p Provisioner) FetchSecretKey(ctx context.Context, profile, accessKey string) (string, error) {
	res, err := p.Runner.Run(ctx, runner.Command{
		Name: clientBinary,
		Args: []string{"get-secret-access-key",
			"--profile", profile,
			"--access-key-id", accessKey,
		},
	})
	if err != nil {
		return "", err
	}
	return parseSecret(res.Stdout)
}

func parseSecret(resp string) (string, error) {
	cfg, err := ini.Load([]byte(resp))
	if err != nil {
		log.WithError(err).Debug("Secret key response is not INI")
		return "", errors.CredentialParseError{Section: secretSection}
	}

	section, err := cfg.GetSection(secretSection)
	if err != nil {
		return "", errors.CredentialParseError{Section: secretSection}
	}

	if !section.HasKey(secretKey) {
		return "", errors.CredentialParseError{Section: secretSection, Key: secretKey}
	}

	secret := strings.TrimSpace(section.Key(secretKey).String())
	if secret == "" {
		return "", errors.CredentialParseError{Section: secretSection, Key: secretKey}
	}
	return secret, nil
}
