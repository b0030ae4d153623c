package manifest

import "fmt"

// Validate checks a typed manifest against the protocol.
func Validate(m *Manifest) error {
	if m == nil {
		return &ValidationError{Reason: "invalid manifest object"}
	}
	if m.Version != Version {
		return &ValidationError{Reason: fmt.Sprintf("unsupported version: %s", m.Version)}
	}
	if m.Processes == nil {
		return &ValidationError{Reason: "invalid processes array"}
	}
	if m.VFS == nil {
		return &ValidationError{Reason: "invalid VFS object"}
	}
	return nil
}

// validateShape applies the same rules to an untyped document so that
// structural mistakes are reported as validation failures rather than as
// decoder errors.
func validateShape(doc interface{}) error {
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return &ValidationError{Reason: "invalid manifest object"}
	}

	version, _ := obj["version"].(string)
	if version != Version {
		return &ValidationError{Reason: fmt.Sprintf("unsupported version: %v", obj["version"])}
	}
	if _, ok := obj["processes"].([]interface{}); !ok {
		return &ValidationError{Reason: "invalid processes array"}
	}
	if _, ok := obj["vfs"].(map[string]interface{}); !ok {
		return &ValidationError{Reason: "invalid VFS object"}
	}
	return nil
}
