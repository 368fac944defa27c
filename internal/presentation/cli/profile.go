// Package cli implements microloanctl, the operator command line for the
// MicroLoan gRPC service.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile holds connection settings. Flags override file values.
type Profile struct {
	Addr       string        `yaml:"addr"`
	Token      string        `yaml:"token"`
	CAFile     string        `yaml:"ca_file"`
	ServerName string        `yaml:"server_name"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DefaultProfile targets a local plaintext server.
func DefaultProfile() Profile {
	return Profile{Addr: "localhost:9090", Timeout: 10 * time.Second}
}

// DefaultProfilePath is ~/.microloan/config.yaml, or empty when the home
// directory is unknown.
func DefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".microloan", "config.yaml")
}

// LoadProfile reads path over the defaults. A missing file is not an error.
// MICROLOAN_TOKEN supplies the token when the file has none.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return p, fmt.Errorf("read profile: %w", err)
		default:
			if err := yaml.Unmarshal(data, &p); err != nil {
				return p, fmt.Errorf("parse profile %s: %w", path, err)
			}
		}
	}
	if p.Token == "" {
		p.Token = os.Getenv("MICROLOAN_TOKEN")
	}
	return p, nil
}

// TLS reports whether the profile asks for a TLS connection.
func (p Profile) TLS() bool { return p.CAFile != "" || p.ServerName != "" }
