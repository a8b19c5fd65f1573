package agent

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Override holds optional per-role settings from <rolesDir>/<name>.yaml.
type Override struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// LoadOverride reads a role override file. A missing file returns (nil, nil).
func LoadOverride(rolesDir, name string) (*Override, error) {
	data, err := os.ReadFile(filepath.Join(rolesDir, name+".yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ov Override
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, err
	}
	return &ov, nil
}

// SaveOverride writes a role override file, creating the directory if needed.
func SaveOverride(rolesDir, name string, ov *Override) error {
	if err := os.MkdirAll(rolesDir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(ov)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(rolesDir, name+".yaml"), data, 0o644)
}
