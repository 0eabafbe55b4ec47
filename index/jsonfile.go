package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// FileName is the name of the JSON index file inside the storage root.
const FileName = "index"

// JSONFile persists the index as a single JSON object at {root}/index,
// keys in iteration order: {"key":"hash",...}.
type JSONFile struct {
	root string
	path string
}

// Compile-time interface check.
var _ Backend = (*JSONFile)(nil)

// NewJSONFile returns a JSON backend rooted at root.
func NewJSONFile(root string) *JSONFile {
	return &JSONFile{
		root: root,
		path: filepath.Join(root, FileName),
	}
}

// Path returns the index file path.
func (f *JSONFile) Path() string {
	return f.path
}

// Load ensures the root directory exists and reads the index file.
// A missing file yields an empty mapping; the file itself is not created.
func (f *JSONFile) Load() ([]Entry, error) {
	if err := os.MkdirAll(f.root, 0700); err != nil {
		return nil, fmt.Errorf("index: create root directory: %w", err)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("index: read %s: %w", f.path, err)
	}

	return decodeJSON(data)
}

// decodeJSON parses a JSON object of string values, keeping document order.
func decodeJSON(data []byte) ([]Entry, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrCorruptIndex)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrCorruptIndex)
	}

	var (
		entries []Entry
		bad     error
	)
	doc.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			bad = fmt.Errorf("%w: value for %q is not a string", ErrCorruptIndex, key.String())
			return false
		}
		entries = append(entries, Entry{Key: key.String(), Hash: value.String()})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return entries, nil
}

// Save overwrites the index file with entries.
func (f *JSONFile) Save(entries []Entry) error {
	data, err := encodeJSON(entries)
	if err != nil {
		return fmt.Errorf("index: marshal: %w", err)
	}
	if err := os.MkdirAll(f.root, 0700); err != nil {
		return fmt.Errorf("index: create root directory: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("index: write %s: %w", f.path, err)
	}
	return nil
}

// encodeJSON renders entries as a compact object. encoding/json sorts map
// keys, so the object is assembled by hand to keep iteration order.
func encodeJSON(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, e.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, e.Hash); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeString appends s as a JSON string. HTML characters are left as is.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// Close is a no-op for the JSON backend.
func (f *JSONFile) Close() error { return nil }
