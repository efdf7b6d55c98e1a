package permissions

import (
	_ "embed"
	"encoding/json"
	"slices"
	"sync"

	"hotel/shared/constant"

	"github.com/rs/zerolog/log"
)

//go:embed permissions.json
var permissionsData []byte

var (
	loaded *PermissionData
	once   sync.Once
)

var knownRoles = []string{constant.RoleAdmin, constant.RoleStaff}

type Permission struct {
	Permissions []string `json:"permissions"`
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Skip        bool     `json:"skip"`
}

// PermissionData maps chi route patterns to the staff roles allowed on them. A route
// that is not listed allows any authenticated role.
type PermissionData struct {
	Endpoints []Permission `json:"endpoints"`
	Skip      bool         `json:"skip"`

	index map[string]Permission
}

func (r *PermissionData) FindPermissions(path, method string) Permission {
	if r.index != nil {
		return r.index[method+" "+path]
	}

	idx := slices.IndexFunc(r.Endpoints, func(rp Permission) bool {
		return rp.Path == path && rp.Method == method
	})

	if idx == -1 {
		return Permission{}
	}

	return r.Endpoints[idx]
}

// Get decodes the embedded permissions once and shares the result.
func Get() *PermissionData {
	once.Do(func() {
		loaded = Parse(permissionsData)
	})

	return loaded
}

// Parse decodes a permissions document. It returns nil when the document is malformed,
// which makes RBAC reject every protected route.
func Parse(data []byte) *PermissionData {
	var permissions PermissionData

	if err := json.Unmarshal(data, &permissions); err != nil {
		log.Err(err).Msg("Failed to decode permissions")

		return nil
	}

	permissions.index = make(map[string]Permission, len(permissions.Endpoints))

	for _, endpoint := range permissions.Endpoints {
		for _, role := range endpoint.Permissions {
			if !slices.Contains(knownRoles, role) {
				log.Warn().Str("path", endpoint.Path).Str("method", endpoint.Method).Str("role", role).Msg("Unknown role in permissions")
			}
		}

		permissions.index[endpoint.Method+" "+endpoint.Path] = endpoint
	}

	log.Info().Int("endpoints", len(permissions.Endpoints)).Msg("Successfully loaded permissions")

	return &permissions
}
