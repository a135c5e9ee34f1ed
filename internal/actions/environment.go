package actions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"snapmaster-gcp/internal/credentials"
	"snapmaster-gcp/internal/models"
)

const (
	// ParamPrefix namespaces param-derived variables so a param can never
	// shadow PATH, HOME or the reserved variables below
	ParamPrefix = "SM_"

	EnvActiveSnapID = "ACTIVESNAPID"
	EnvServiceCreds = "SERVICECREDS"
	// EnvProject is the project the resolved key belongs to. Scripts use it
	// instead of SM_PROJECT, which may be the default-entity name.
	EnvProject = "GCP_PROJECT"
)

// EnvName maps a param key to its environment variable name
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString(ParamPrefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// BuildEnvironment composes the script environment: base, then one variable
// per param entry, then the active snap ID, the key's project and the raw
// service credentials.
// Later entries win when os/exec sees duplicate names.
func BuildEnvironment(base []string, activeSnapID string, param models.Params, key *credentials.ServiceAccountKey) []string {
	keys := make([]string, 0, len(param))
	for k := range param {
		if k == credentials.EntityName {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(keys)+3)
	env = append(env, base...)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", EnvName(k), envValue(param[k])))
	}
	env = append(env, fmt.Sprintf("%s=%s", EnvActiveSnapID, activeSnapID))
	if key != nil {
		env = append(env, fmt.Sprintf("%s=%s", EnvProject, key.ProjectID))
		env = append(env, fmt.Sprintf("%s=%s", EnvServiceCreds, key.JSON()))
	}
	return env
}

func envValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool, float64, int, int64:
		return fmt.Sprint(value)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(encoded)
	}
}
