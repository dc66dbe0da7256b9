// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gwdash/gwdash/lib/apitest"
)

// seedFile lists accounts to create at startup:
//
//	users:
//	  - email: ana@example.com
//	    password: correct-horse
//	    name: Ana
//	    role: admin
//	  - email: luis@example.com
//	    password: battery-staple
//	    active: false
type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Active   *bool  `yaml:"active"`
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	for i, user := range seed.Users {
		if user.Email == "" || user.Password == "" {
			return nil, fmt.Errorf("seed file %s: user %d needs an email and a password", path, i)
		}
		switch user.Role {
		case "":
			seed.Users[i].Role = "user"
		case "user", "admin":
		default:
			return nil, fmt.Errorf("seed file %s: user %s has unknown role %q", path, user.Email, user.Role)
		}
	}
	return &seed, nil
}

func (s *seedFile) apply(server *apitest.Server) error {
	for _, user := range s.Users {
		active := user.Active == nil || *user.Active
		if _, err := server.AddUser(user.Email, user.Password, user.Name, user.Role, active); err != nil {
			return fmt.Errorf("seeding %s: %w", user.Email, err)
		}
	}
	return nil
}
