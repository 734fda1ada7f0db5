// Package manifest loads image manifests: a JSON array (or YAML sequence) of
// {id, tags, path} records.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"qbank/internal/models"
)

var (
	// ErrMalformed marks a manifest that cannot be parsed as a list of records.
	ErrMalformed = errors.New("malformed manifest")
	// ErrInvalidRecord marks a single manifest entry that is not a valid record.
	ErrInvalidRecord = errors.New("invalid record")
)

// Format selects the manifest syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Entry is one element of the manifest array, kept as compact raw JSON so a
// malformed element only fails its own record.
type Entry struct {
	Index int
	Raw   json.RawMessage
	// err is set when the element could not be expressed as JSON; Raw then
	// holds the element's YAML text as a JSON string.
	err error
}

// Manifest is a parsed manifest file.
type Manifest struct {
	Path    string
	Format  Format
	Entries []Entry
}

// FormatForPath picks the manifest format from the file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("manifest path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	format := FormatForPath(path)
	entries, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Manifest{Path: path, Format: format, Entries: entries}, nil
}

// Parse splits manifest bytes into entries. The top-level value must be an
// array; anything else is ErrMalformed.
func Parse(data []byte, format Format) ([]Entry, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data)
	case FormatJSON, "":
		return parseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
}

func parseJSON(data []byte) ([]Entry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if items == nil {
		return nil, fmt.Errorf("%w: top-level value must be an array", ErrMalformed)
	}
	return entriesFromRaw(items)
}

func parseYAML(data []byte) ([]Entry, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if nodes == nil {
		return nil, fmt.Errorf("%w: top-level value must be a sequence", ErrMalformed)
	}
	entries := make([]Entry, 0, len(nodes))
	for idx := range nodes {
		entries = append(entries, yamlEntry(idx, &nodes[idx]))
	}
	return entries, nil
}

// yamlEntry converts one sequence element to JSON. Elements JSON cannot
// represent (non-string keys, NaN, Inf) fail only their own entry.
func yamlEntry(idx int, node *yaml.Node) Entry {
	var item any
	err := node.Decode(&item)
	if err == nil {
		var raw []byte
		if raw, err = json.Marshal(item); err == nil {
			return Entry{Index: idx, Raw: raw}
		}
	}
	text, _ := json.Marshal(yamlFlowText(node))
	return Entry{Index: idx, Raw: text, err: err}
}

func yamlFlowText(node *yaml.Node) string {
	flow := *node
	flow.Style |= yaml.FlowStyle
	out, err := yaml.Marshal(&flow)
	if err != nil {
		return fmt.Sprintf("line %d", node.Line)
	}
	return strings.TrimSpace(string(out))
}

func entriesFromRaw(items []json.RawMessage) ([]Entry, error) {
	entries := make([]Entry, 0, len(items))
	for idx, item := range items {
		var buf bytes.Buffer
		if err := json.Compact(&buf, item); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, idx, err)
		}
		entries = append(entries, Entry{Index: idx, Raw: buf.Bytes()})
	}
	return entries, nil
}

// Decode validates the entry and returns its record.
func (e Entry) Decode() (models.Record, error) {
	var rec models.Record
	if e.err != nil {
		return rec, fmt.Errorf("%w: %v", ErrInvalidRecord, e.err)
	}
	if len(e.Raw) == 0 || e.Raw[0] != '{' {
		return rec, fmt.Errorf("%w: entry must be an object", ErrInvalidRecord)
	}
	if err := json.Unmarshal(e.Raw, &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if rec.ID.IsZero() {
		return rec, fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(rec.Path) == "" {
		return rec, fmt.Errorf("%w: path is required", ErrInvalidRecord)
	}
	return rec, nil
}

// String returns the entry as compact JSON, the form echoed in failure output.
func (e Entry) String() string {
	return string(e.Raw)
}
