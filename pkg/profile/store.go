// Package profile maps credentials issued by the device to a profile that the
// AWS CLI can use.
package profile

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/spf13/afero"

	"github.com/sidkik/snowxfer/pkg/errors"
)

// fs is used for mock tests. It will be overridden by afero.NewMemMapFs()
// in the tests.
var fs = afero.NewOsFs()

const (
	accessKeyField = "aws_access_key_id"
	secretKeyField = "aws_secret_access_key"
	regionField    = "region"

	// Region is the region the appliance reports for its buckets.
	Region = "snow"
)

// Profile is a named key pair in the local client's credential store.
type Profile struct {
	Name      string
	AccessKey string
	SecretKey string
	CreatedAt time.Time
}

// Store persists client profiles. Profiles are only ever added.
type Store interface {
	// FindByAccessKey returns the profile bound to accessKey, if any.
	FindByAccessKey(accessKey string) (Profile, bool, error)

	// Create adds a profile.
	Create(p Profile) error

	// Names lists every known profile.
	Names() ([]string, error)
}

// FileStore stores profiles in the AWS CLI's shared credentials and config
// files.
type FileStore struct {
	CredentialsPath string
	ConfigPath      string
}

// FindByAccessKey scans the credentials file in order, and returns the first
// profile with a matching access key.
func (s FileStore) FindByAccessKey(accessKey string) (Profile, bool, error) {
	creds, err := loadINI(s.CredentialsPath)
	if err != nil {
		return Profile{}, false, errors.WithContext(err, "load credentials")
	}

	for _, section := range creds.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		if section.Key(accessKeyField).String() != accessKey {
			continue
		}
		return Profile{
			Name:      section.Name(),
			AccessKey: accessKey,
			SecretKey: section.Key(secretKeyField).String(),
		}, true, nil
	}
	return Profile{}, false, nil
}

// Create writes the key pair to the credentials file, and binds the profile
// to the appliance's region in the config file.
func (s FileStore) Create(p Profile) error {
	comment := "# Added by snowxfer on " + p.CreatedAt.UTC().Format(time.RFC3339)

	creds, err := loadINI(s.CredentialsPath)
	if err != nil {
		return errors.WithContext(err, "load credentials")
	}
	section, err := creds.NewSection(p.Name)
	if err != nil {
		return errors.WithContext(err, "add credentials section")
	}
	section.Comment = comment
	section.Key(accessKeyField).SetValue(p.AccessKey)
	section.Key(secretKeyField).SetValue(p.SecretKey)
	if err := writeINI(s.CredentialsPath, creds); err != nil {
		return errors.WithContext(err, "write credentials")
	}

	cfg, err := loadINI(s.ConfigPath)
	if err != nil {
		return errors.WithContext(err, "load config")
	}
	section, err = cfg.NewSection(configSectionName(p.Name))
	if err != nil {
		return errors.WithContext(err, "add config section")
	}
	section.Comment = comment
	section.Key(regionField).SetValue(Region)
	if err := writeINI(s.ConfigPath, cfg); err != nil {
		return errors.WithContext(err, "write config")
	}
	return nil
}

// Names returns the profiles defined in either file, in the same way as
// `aws configure list-profiles`.
func (s FileStore) Names() ([]string, error) {
	names := map[string]struct{}{}

	creds, err := loadINI(s.CredentialsPath)
	if err != nil {
		return nil, errors.WithContext(err, "load credentials")
	}
	for _, name := range creds.SectionStrings() {
		if name != ini.DefaultSection {
			names[name] = struct{}{}
		}
	}

	cfg, err := loadINI(s.ConfigPath)
	if err != nil {
		return nil, errors.WithContext(err, "load config")
	}
	for _, name := range cfg.SectionStrings() {
		switch {
		case name == "default":
			names[name] = struct{}{}
		case strings.HasPrefix(name, "profile "):
			names[strings.TrimSpace(strings.TrimPrefix(name, "profile "))] = struct{}{}
		}
	}
	return sortedNames(names), nil
}

func configSectionName(profile string) string {
	if profile == "default" {
		return profile
	}
	return "profile " + profile
}

// loadINI parses the file at path. A missing file is treated as empty.
func loadINI(path string) (*ini.File, error) {
	contents, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return ini.Empty(), nil
	}
	if err != nil {
		return nil, err
	}
	return ini.Load(contents)
}

func writeINI(path string, f *ini.File) error {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return err
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, buf.Bytes(), 0600)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	profiles []Profile
	lock     sync.Mutex
}

// FindByAccessKey returns the first stored profile with a matching access
// key.
func (s *MemoryStore) FindByAccessKey(accessKey string) (Profile, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, p := range s.profiles {
		if p.AccessKey == accessKey {
			return p, true, nil
		}
	}
	return Profile{}, false, nil
}

// Create adds p to the store.
func (s *MemoryStore) Create(p Profile) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, existing := range s.profiles {
		if existing.Name == p.Name {
			return errors.NewFriendlyError("profile %q already exists", p.Name)
		}
	}
	s.profiles = append(s.profiles, p)
	return nil
}

// Names returns the names of the stored profiles.
func (s *MemoryStore) Names() ([]string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	names := map[string]struct{}{}
	for _, p := range s.profiles {
		names[p.Name] = struct{}{}
	}
	return sortedNames(names), nil
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
