package models

import (
	"encoding/json"
	"fmt"
)

// Params is the freeform parameter bag supplied by the engine
type Params map[string]interface{}

// String returns the value stored under key rendered as a string. Absent and
// null values yield "".
func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ConnectionInfo is the legacy connection metadata the engine resolves per
// user. The engine sends it either as an object or as a list of
// {"name": ..., "value": ...} pairs; both decode to the same field map.
type ConnectionInfo struct {
	Fields map[string]interface{}
}

// Get returns the named field
func (c *ConnectionInfo) Get(name string) (interface{}, bool) {
	if c == nil || c.Fields == nil {
		return nil, false
	}
	v, ok := c.Fields[name]
	return v, ok
}

// UnmarshalJSON accepts both the object and the name/value list shapes
func (c *ConnectionInfo) UnmarshalJSON(data []byte) error {
	var object map[string]interface{}
	if err := json.Unmarshal(data, &object); err == nil {
		c.Fields = object
		return nil
	}

	var pairs []struct {
		Name  string      `json:"name"`
		Value interface{} `json:"value"`
	}
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("connectionInfo must be an object or a list of name/value pairs: %w", err)
	}

	c.Fields = make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		c.Fields[pair.Name] = pair.Value
	}
	return nil
}

// MarshalJSON renders the object shape
func (c ConnectionInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Fields)
}

// ActionRequest is the body of POST /invokeAction
type ActionRequest struct {
	ActiveSnapID   string          `json:"activeSnapId" validate:"required"`
	Param          Params          `json:"param" validate:"required"`
	ConnectionInfo *ConnectionInfo `json:"connectionInfo,omitempty"`
}

// TriggerRequest is the body of POST /createTrigger and POST /deleteTrigger
type TriggerRequest struct {
	UserID         string          `json:"userId"`
	ActiveSnapID   string          `json:"activeSnapId"`
	Param          Params          `json:"param"`
	ConnectionInfo *ConnectionInfo `json:"connectionInfo,omitempty"`
	TriggerData    *TriggerRecord  `json:"triggerData,omitempty"`
}

// TriggerRecord identifies a registered trigger. It is handed to the engine
// on create and must be handed back unchanged on delete.
type TriggerRecord struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}
