package auth

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
)

const (
	RoleQueryReader  = "query_reader"
	RoleDatasetAdmin = "dataset_admin"
)

type Identity struct {
	Subject string
	Roles   []string
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses comma separated "key:subject:role|role"
// entries.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:subject:role|role", entry)
		}
		key := strings.TrimSpace(parts[0])
		subject := strings.TrimSpace(parts[1])
		if key == "" || subject == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/subject", entry)
		}
		if _, dup := validator.keys[key]; dup {
			return nil, fmt.Errorf("invalid static key entry %q: duplicate key", entry)
		}
		var roles []string
		for _, role := range strings.Split(parts[2], "|") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("invalid static key entry %q: at least one role is required", entry)
		}
		sort.Strings(roles)
		validator.keys[key] = Identity{Subject: subject, Roles: roles}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Len() int {
	return len(v.keys)
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
