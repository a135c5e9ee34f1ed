package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapmaster-gcp/internal/common/errors"
)

type bodyView struct {
	UserID       string                 `json:"userId" validate:"required"`
	ActiveSnapID string                 `json:"activeSnapId" validate:"required"`
	Param        map[string]interface{} `json:"param" validate:"required"`
}

type paramView struct {
	Event   string `json:"event" validate:"required,eq=pubsub"`
	Topic   string `json:"topic" validate:"required"`
	Project string `json:"project" validate:"required"`
	Action  string `json:"action" validate:"omitempty,script_name"`
}

func TestFirst_Body(t *testing.T) {
	tests := []struct {
		name    string
		view    bodyView
		wantMsg string
	}{
		{"valid", bodyView{"u1", "a1", map[string]interface{}{}}, ""},
		{"missing userId", bodyView{"", "a1", map[string]interface{}{}}, `missing required field "userId" in request body`},
		{"missing activeSnapId first", bodyView{"u1", "", nil}, `missing required field "activeSnapId" in request body`},
		{"missing param", bodyView{"u1", "a1", nil}, `missing required field "param" in request body`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := First(tt.view, ScopeBody)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
			assert.Equal(t, tt.wantMsg, errors.Message(err))
		})
	}
}

func TestFirst_Params(t *testing.T) {
	tests := []struct {
		name    string
		view    paramView
		wantMsg string
	}{
		{"valid", paramView{"pubsub", "t1", "p1", "build"}, ""},
		{"missing event", paramView{"", "", "", ""}, `missing required parameter "event"`},
		{"unknown event", paramView{"storage", "t1", "p1", ""}, `unknown event "storage"`},
		{"missing topic", paramView{"pubsub", "", "p1", ""}, `missing required parameter "topic"`},
		{"missing project", paramView{"pubsub", "t1", "", ""}, `missing required parameter "project"`},
		{"bad action", paramView{"pubsub", "t1", "p1", "../rm"}, `invalid action "../rm": only letters, digits, '-' and '_' are allowed`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := First(tt.view, ScopeParam)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, errors.Message(err))
		})
	}
}

func TestAll(t *testing.T) {
	type cfg struct {
		EngineURL string `json:"ENGINE_URL" validate:"required,url"`
		Workers   int    `json:"MAX_CONCURRENT_ACTIONS" validate:"min=1"`
	}

	err := All(cfg{EngineURL: "", Workers: 0})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	assert.Contains(t, err.Error(), "ENGINE_URL is required")
	assert.Contains(t, err.Error(), "MAX_CONCURRENT_ACTIONS must be at least 1")

	assert.NoError(t, All(cfg{EngineURL: "https://engine.example.com", Workers: 2}))
}
