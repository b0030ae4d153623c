package manifest

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Format selects a rendering for EncodeAs.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts json, yaml/yml and toml, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Encode renders the persisted form: pretty-printed JSON.
func Encode(m *Manifest) ([]byte, error) {
	data, err := sonic.ConfigStd.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return data, nil
}

// EncodedSize is the byte length of the compact JSON encoding.
func EncodedSize(m *Manifest) (int, error) {
	data, err := sonic.ConfigStd.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return len(data), nil
}

// Decode parses a persisted or imported manifest. The document's shape and
// version are checked before typed decoding; anything else is rejected.
func Decode(data []byte) (*Manifest, error) {
	var doc interface{}
	if err := sonic.ConfigStd.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Reason: "invalid manifest object", Err: err}
	}
	if err := validateShape(doc); err != nil {
		return nil, err
	}

	var m Manifest
	if err := sonic.ConfigStd.Unmarshal(data, &m); err != nil {
		return nil, &ValidationError{Reason: "malformed manifest", Err: err}
	}
	if m.Settings == nil {
		m.Settings = map[string]interface{}{}
	}
	if m.Metadata == nil {
		m.Metadata = map[string]interface{}{}
	}
	return &m, nil
}

// EncodeAs renders a manifest for offline inspection. TOML has no null, so
// null values (directory content, missing state) are absent from that form.
func EncodeAs(m *Manifest, format Format) ([]byte, error) {
	if format == FormatJSON {
		return Encode(m)
	}

	doc, err := toDocument(m)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		return data, nil
	case FormatTOML:
		data, err := toml.Marshal(dropNulls(doc))
		if err != nil {
			return nil, fmt.Errorf("failed to encode toml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// toDocument round-trips through JSON so every rendering sees the same keys.
func toDocument(m *Manifest) (map[string]interface{}, error) {
	data, err := sonic.ConfigStd.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	var doc map[string]interface{}
	if err := sonic.ConfigStd.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return doc, nil
}

func dropNulls(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			if item == nil {
				continue
			}
			out[k] = dropNulls(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, dropNulls(item))
		}
		return out
	default:
		return v
	}
}
