// Package manifest defines the versioned session manifest for sessiond.
//
// A manifest is the durable, transportable form of one desktop session:
// the virtual filesystem, every open window with its app state, and the
// user settings captured at a single point in time.
//
// Components:
//   - Types: Manifest, VFSNode, WindowState, ProcessDescriptor
//   - Factory: New, SerializeVFSNode, SerializeWindowState, NewProcessDescriptor
//   - Validation: Validate for typed manifests, Decode for raw documents
//   - Codec: Encode (pretty JSON) and EncodeAs (json, yaml, toml)
//
// Persisted Format:
//   - UTF-8 JSON, two-space indent
//   - Top-level keys: version, timestamp, vfs, processes, settings, metadata
//
// Decode fails closed: a document whose version is not Version is rejected
// before any typed decoding is attempted.
//
// Example Usage:
//
//	m := manifest.New()
//	m.VFS["home:/notes.txt"] = manifest.SerializeVFSNode(stat, &content)
//	data, err := manifest.Encode(m)
//	restored, err := manifest.Decode(data)
package manifest
