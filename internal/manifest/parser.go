package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kytos/kytos-utils/internal/napp"
)

// Parse reads a kytos.json file.
func Parse(path string) (*Metadata, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data, path)
}

// ParseBytes decodes kytos.json content. source names it in errors.
func ParseBytes(data []byte, source string) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}
	return &meta, nil
}

// ParseRaw decodes kytos.json keeping every field, including ones Metadata
// does not model. Uploads send the descriptor as the author wrote it.
func ParseRaw(path string) (map[string]any, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return raw, nil
}

// FindFor looks for the descriptor of k under root, first at root itself,
// then at root/<namespace>/<name>. It returns the directory holding the
// matching kytos.json, or napp.ErrNotFoundLocally.
func FindFor(root string, k napp.Key) (string, error) {
	for _, dir := range []string{root, filepath.Join(root, k.Namespace, k.Name)} {
		meta, err := Parse(filepath.Join(dir, FileName))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", err
		}
		if meta.Matches(k) {
			return dir, nil
		}
	}
	return "", napp.ErrNotFoundLocally
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
