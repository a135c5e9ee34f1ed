package app

import (
	"snapmaster-gcp/internal/actions"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/credentials"
)

func (app *App) initializeActions() {
	app.Resolver = credentials.NewResolver(app.Logger.WithFields(logging.Field{Key: "component", Value: "credentials"}))

	executor := actions.NewExecutor(actions.NewShellRunner(), actions.ExecutorConfig{
		ScriptDir:     app.Config.ScriptDir,
		MaxConcurrent: app.Config.MaxConcurrentActions,
		Timeout:       app.Config.ActionTimeout,
	}, app.Logger.WithFields(logging.Field{Key: "component", Value: "executor"}))

	app.Actions = actions.NewService(app.Resolver, executor,
		app.Logger.WithFields(logging.Field{Key: "component", Value: "actions"}))

	app.Logger.Info("Actions: Ready",
		logging.Field{Key: "script_dir", Value: app.Config.ScriptDir},
		logging.Field{Key: "max_concurrent", Value: app.Config.MaxConcurrentActions},
		logging.Field{Key: "timeout", Value: app.Config.ActionTimeout.String()},
	)
}
