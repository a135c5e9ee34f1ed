package credentials

import (
	"fmt"

	"snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/models"
)

const (
	// EntityName is the param key under which the engine embeds the project
	// connection entity
	EntityName = "gcp:projects"
	// DefaultEntityName selects the connection info passed alongside the
	// request instead of an embedded entity
	DefaultEntityName = "gcp:projects:default"

	keyField = "key"
)

// Source is where a request's service-account key comes from. It is either
// an InlineSource or an EmbeddedSource.
type Source interface {
	// Name identifies the source in logs
	Name() string
	lookupKey() (interface{}, bool)
}

// InlineSource is the connection info the engine resolved for the user
type InlineSource struct {
	Info *models.ConnectionInfo
}

func (s InlineSource) Name() string { return "connectionInfo" }

func (s InlineSource) lookupKey() (interface{}, bool) {
	return s.Info.Get(keyField)
}

// EmbeddedSource is the project entity embedded in param[EntityName]
type EmbeddedSource struct {
	Entity map[string]interface{}
}

func (s EmbeddedSource) Name() string { return EntityName }

func (s EmbeddedSource) lookupKey() (interface{}, bool) {
	v, ok := s.Entity[keyField]
	return v, ok
}

// Resolver turns request credential sources into service-account keys
type Resolver struct {
	logger logging.Logger
}

// NewResolver creates a credential resolver
func NewResolver(logger logging.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// SelectSource picks the credential source for project. It fails when the
// selected source is absent from the request.
func SelectSource(project string, info *models.ConnectionInfo, param models.Params) (Source, error) {
	if project == DefaultEntityName {
		if info == nil || info.Fields == nil {
			return nil, errors.CredentialError(fmt.Sprintf("missing required parameter %s", EntityName), nil).
				WithContext("reason", "connectionInfo is absent")
		}
		return InlineSource{Info: info}, nil
	}

	entity, ok := param[EntityName].(map[string]interface{})
	if !ok || entity == nil {
		return nil, errors.CredentialError(fmt.Sprintf("missing required parameter %s", EntityName), nil)
	}
	return EmbeddedSource{Entity: entity}, nil
}

// Resolve selects the credential source for project and parses its key. A
// key without project_id takes project, unless project is the default-entity
// name, in which case the key is rejected.
func (r *Resolver) Resolve(project string, info *models.ConnectionInfo, param models.Params) (*ServiceAccountKey, error) {
	source, err := SelectSource(project, info, param)
	if err != nil {
		return nil, err
	}

	value, ok := source.lookupKey()
	if !ok {
		r.logger.Warn("Service key not found in credential source",
			logging.Field{Key: "source", Value: source.Name()},
		)
		return nil, errors.CredentialError("service credentials not found", nil).
			WithContext("reason", fmt.Sprintf("could not find key in %s", source.Name()))
	}

	key, err := ParseKey(value)
	if err != nil {
		r.logger.Warn("Could not parse service key",
			logging.Field{Key: "source", Value: source.Name()},
			logging.Field{Key: "reason", Value: err.Error()},
		)
		return nil, errors.CredentialError("service credentials not found", err).
			WithContext("reason", err.Error())
	}

	if key.ProjectID == "" {
		if project == DefaultEntityName {
			r.logger.Warn("Service key has no project_id",
				logging.Field{Key: "source", Value: source.Name()},
			)
			return nil, errors.CredentialError("service credentials not found", nil).
				WithContext("reason", "key is missing project_id")
		}
		key.ProjectID = project
	}

	r.logger.Debug("Resolved service credentials",
		logging.Field{Key: "source", Value: source.Name()},
		logging.Field{Key: "project_id", Value: key.ProjectID},
		logging.Redacted("private_key", true),
	)
	return key, nil
}
