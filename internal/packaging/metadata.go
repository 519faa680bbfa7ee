package packaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kytos/kytos-utils/internal/manifest"
)

const (
	// ReadmeFile is sent as the readme field.
	ReadmeFile = "README.rst"
	// OpenAPIFile is sent, converted to JSON, as the OpenAPI_Spec field.
	OpenAPIFile = "openapi.yml"
)

// Metadata assembles the upload metadata of the NApp in dir: kytos.json as
// written, plus the readme and the OpenAPI document as a JSON string. The
// readme and OpenAPI document are optional and sent empty when absent.
func Metadata(dir string) (map[string]any, error) {
	meta, err := manifest.ParseRaw(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return nil, err
	}

	readme, err := os.ReadFile(filepath.Join(dir, ReadmeFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", ReadmeFile, err)
	}
	meta["readme"] = string(readme)

	spec, err := OpenAPIJSON(filepath.Join(dir, OpenAPIFile))
	if err != nil {
		return nil, err
	}
	meta["OpenAPI_Spec"] = spec
	return meta, nil
}

// OpenAPIJSON reads a YAML OpenAPI document and returns it as JSON. A
// missing file yields "".
func OpenAPIJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}
	out, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return "", fmt.Errorf("converting %s to JSON: %w", path, err)
	}
	return string(out), nil
}

// normalizeYAML converts YAML-decoded values to JSON-compatible types.
// Mappings with non-string keys, such as response codes written as bare
// numbers, decode to map[any]any, which encoding/json refuses.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[k] = normalizeYAML(v)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case []any:
		a := make([]any, len(val))
		for i, v := range val {
			a[i] = normalizeYAML(v)
		}
		return a
	default:
		return val
	}
}
