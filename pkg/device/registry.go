package device

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/sidkik/snowxfer/pkg/errors"
)

// RegistryProfile is a profile written by the management client when it
// unlocks a device.
type RegistryProfile struct {
	Name         string `json:"name,omitempty"`
	ManifestPath string `json:"manifestPath"`
	UnlockCode   string `json:"unlockCode"`
	Endpoint     string `json:"endpoint"`
}

// Registry is the management client's record of unlocked devices. It's
// written by the client, so this tool only reads it.
type Registry interface {
	Profiles() (map[string]RegistryProfile, error)
}

// FindByUnlockCode returns the registry profile bound to unlockCode. If
// several are, the lexically first name is returned so that repeated runs
// agree.
func FindByUnlockCode(reg Registry, unlockCode string) (string, bool, error) {
	profiles, err := reg.Profiles()
	if err != nil {
		return "", false, err
	}

	var names []string
	for name, profile := range profiles {
		if profile.UnlockCode == unlockCode {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false, nil
	}
	sort.Strings(names)
	return names[0], true, nil
}

// HasProfile returns whether name is in the registry.
func HasProfile(reg Registry, name string) (bool, error) {
	profiles, err := reg.Profiles()
	if err != nil {
		return false, err
	}
	_, ok := profiles[name]
	return ok, nil
}

type registryFile struct {
	Version  int                        `json:"version"`
	Profiles map[string]RegistryProfile `json:"profiles"`
}

// FileRegistry reads the management client's JSON config file.
type FileRegistry struct {
	Path string
}

// Profiles parses the registry file. A missing file means the client has
// never unlocked a device, and yields no profiles.
func (reg FileRegistry) Profiles() (map[string]RegistryProfile, error) {
	contents, err := afero.ReadFile(fs, reg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]RegistryProfile{}, nil
		}
		return nil, errors.WithContext(err, "read device registry")
	}

	var parsed registryFile
	if err := json.Unmarshal(contents, &parsed); err != nil {
		return nil, errors.NewFriendlyError("The device registry at %q could "+
			"not be parsed. It's written by %s, so check that the client "+
			"is installed correctly.\n\n"+
			"For reference, here is the error from the parser:\n%s",
			reg.Path, clientBinary, err)
	}
	if parsed.Profiles == nil {
		parsed.Profiles = map[string]RegistryProfile{}
	}
	return parsed.Profiles, nil
}

// MemoryRegistry is an in-memory Registry.
type MemoryRegistry struct {
	profiles map[string]RegistryProfile
	lock     sync.Mutex
}

// NewMemoryRegistry returns a registry holding a copy of profiles.
func NewMemoryRegistry(profiles map[string]RegistryProfile) *MemoryRegistry {
	reg := &MemoryRegistry{profiles: map[string]RegistryProfile{}}
	for name, profile := range profiles {
		reg.profiles[name] = profile
	}
	return reg
}

// Add records a profile, as the management client does after an unlock.
func (reg *MemoryRegistry) Add(name string, profile RegistryProfile) {
	reg.lock.Lock()
	defer reg.lock.Unlock()
	reg.profiles[name] = profile
}

// Profiles returns a copy of the registered profiles.
func (reg *MemoryRegistry) Profiles() (map[string]RegistryProfile, error) {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	profiles := map[string]RegistryProfile{}
	for name, profile := range reg.profiles {
		profiles[name] = profile
	}
	return profiles, nil
}
