package credentials

import (
	"encoding/json"
	"fmt"
)

// ServiceAccountKey is a parsed GCP service-account key. It lives only for
// the duration of one request and must never be logged; String and GoString
// render a redacted form so accidental formatting does not leak it.
type ServiceAccountKey struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`

	raw []byte
}

// JSON returns the key exactly as supplied by the caller
func (k *ServiceAccountKey) JSON() []byte {
	return k.raw
}

// String implements fmt.Stringer
func (k *ServiceAccountKey) String() string {
	if k == nil {
		return "<nil>"
	}
	return fmt.Sprintf("ServiceAccountKey{project_id: %q, private_key: <redacted>}", k.ProjectID)
}

// GoString implements fmt.GoStringer
func (k *ServiceAccountKey) GoString() string {
	return k.String()
}

// MarshalJSON keeps the private key out of any serialized form
func (k *ServiceAccountKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"project_id":  k.ProjectID,
		"private_key": "<redacted>",
	})
}

// ParseKey decodes a service-account key. value may be a JSON-encoded string
// or an already-decoded object.
func ParseKey(value interface{}) (*ServiceAccountKey, error) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil, fmt.Errorf("key is empty")
	case string:
		if v == "" {
			return nil, fmt.Errorf("key is empty")
		}
		raw = []byte(v)
	case []byte:
		raw = v
	case map[string]interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode key: %w", err)
		}
		raw = encoded
	default:
		return nil, fmt.Errorf("key has unsupported type %T", value)
	}

	// Decode into a plain struct so a parse error never echoes key material
	var fields struct {
		Type        string `json:"type"`
		ProjectID   string `json:"project_id"`
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("key is not valid JSON")
	}
	if fields.PrivateKey == "" {
		return nil, fmt.Errorf("key is missing private_key")
	}
	if fields.ClientEmail == "" {
		return nil, fmt.Errorf("key is missing client_email")
	}

	return &ServiceAccountKey{
		Type:        fields.Type,
		ProjectID:   fields.ProjectID,
		ClientEmail: fields.ClientEmail,
		PrivateKey:  fields.PrivateKey,
		raw:         raw,
	}, nil
}
