// Package profiles loads named connection profiles from a YAML file so
// operators can switch between robots without retyping URLs.
package profiles

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is one named server connection.
type Profile struct {
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	BasePath string `yaml:"base_path,omitempty" json:"basePath,omitempty"`
}

type file struct {
	Profiles []Profile `yaml:"profiles"`
}

// Load reads the profiles file at path. A missing file is not an error; it
// just means no profiles are configured.
func Load(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for i, p := range f.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d has no name", i)
		}
		if p.URL == "" {
			return nil, fmt.Errorf("profile %q has no url", p.Name)
		}
	}
	return f.Profiles, nil
}

// Find returns the profile with the given name.
func Find(profiles []Profile, name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
