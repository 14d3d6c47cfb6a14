package idpfake

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// User is a seed record. Password is plaintext in the seed and hashed on load.
type User struct {
	Email      string   `yaml:"email"`
	Password   string   `yaml:"password"`
	Role       string   `yaml:"role"`
	ClientID   string   `yaml:"clientId"`
	Groups     []string `yaml:"groups"`
	MFAEnabled bool     `yaml:"mfaEnabled"`
}

type seedFile struct {
	Users []User `yaml:"users"`
}

// LoadUsersFile reads a yaml seed of the form:
//
//	users:
//	  - email: owner@example.com
//	    password: changeme
//	    role: owner
func LoadUsersFile(path string) ([]User, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for i, u := range f.Users {
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user %d: email and password are required", i)
		}
	}
	return f.Users, nil
}
