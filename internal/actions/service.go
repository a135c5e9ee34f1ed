package actions

import (
	"context"

	"snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/common/validation"
	"snapmaster-gcp/internal/credentials"
	"snapmaster-gcp/internal/models"
)

// Invoker runs a resolved action
type Invoker interface {
	Invoke(ctx context.Context, activeSnapID string, param models.Params, key *credentials.ServiceAccountKey) *models.ExecutionResult
}

// CredentialResolver resolves a request's service-account key
type CredentialResolver interface {
	Resolve(project string, info *models.ConnectionInfo, param models.Params) (*credentials.ServiceAccountKey, error)
}

// Service implements the invokeAction operation
type Service struct {
	resolver CredentialResolver
	invoker  Invoker
	logger   logging.Logger
}

// NewService creates an action service
func NewService(resolver CredentialResolver, invoker Invoker, logger logging.Logger) *Service {
	return &Service{resolver: resolver, invoker: invoker, logger: logger}
}

type actionBody struct {
	ActiveSnapID string        `json:"activeSnapId" validate:"required"`
	Param        models.Params `json:"param" validate:"required"`
}

type actionParams struct {
	Action  string `json:"action" validate:"required,script_name"`
	Project string `json:"project" validate:"required"`
}

// InvokeAction validates req, resolves its credentials and runs the action.
// Nothing is executed unless validation and resolution succeed.
func (s *Service) InvokeAction(ctx context.Context, req *models.ActionRequest) models.ReturnValue {
	logger := s.logger.WithContext(ctx)

	if req == nil {
		req = &models.ActionRequest{}
	}
	if err := validation.First(actionBody{ActiveSnapID: req.ActiveSnapID, Param: req.Param}, validation.ScopeBody); err != nil {
		logger.Warn("invokeAction rejected", logging.Field{Key: "reason", Value: errors.Message(err)})
		return models.FromError(err)
	}

	params := actionParams{Action: req.Param.String("action"), Project: req.Param.String("project")}
	if err := validation.First(params, validation.ScopeParam); err != nil {
		logger.Warn("invokeAction rejected", logging.Field{Key: "reason", Value: errors.Message(err)})
		return models.FromError(err)
	}

	key, err := s.resolver.Resolve(params.Project, req.ConnectionInfo, req.Param)
	if err != nil {
		logger.Warn("invokeAction credential resolution failed", logging.Field{Key: "reason", Value: errors.Message(err)})
		return models.FromError(err)
	}

	logger.Info("Invoking action",
		logging.Field{Key: "action", Value: params.Action},
		logging.Field{Key: "project", Value: params.Project},
	)

	result := s.invoker.Invoke(ctx, req.ActiveSnapID, req.Param, key)
	if result.Error != nil {
		return models.Failure(errors.Message(result.Error), result)
	}
	return models.Success(result)
}
