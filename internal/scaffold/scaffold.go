package scaffold

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/kytos/kytos-utils/internal/manifest"
	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/packaging"
)

//go:embed all:templates
var templatesFS embed.FS

const (
	nappTemplates = "templates/napp"
	uiDir         = "ui"
	tmplSuffix    = ".tmpl"

	// DefaultDescription is written when the author leaves the description
	// blank.
	DefaultDescription = "Insert your NApp description here."
	// DefaultVersion is the version of a freshly created NApp.
	DefaultVersion = "0.1"
)

// UISections are the web UI sections a NApp may contribute components to.
var UISections = []string{"k-info-panel", "k-toolbar", "k-action-menu"}

// metaOnly are the templates left out of meta packages.
var metaOnly = map[string]bool{"main.py": true, "settings.py": true}

// Data holds the variables available to the NApp templates.
type Data struct {
	Username    string
	Name        string
	Description string
	Version     string
}

// NewData returns Data for username/name, falling back to the default
// description and version.
func NewData(username, name, description string) *Data {
	if strings.TrimSpace(description) == "" {
		description = DefaultDescription
	}
	return &Data{
		Username:    username,
		Name:        name,
		Description: description,
		Version:     DefaultVersion,
	}
}

// Options tune Generate.
type Options struct {
	// Meta creates a meta package: only kytos.json, README.rst and
	// __init__.py, no code and no UI.
	Meta bool
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		out, err := json.Marshal(v)
		return string(out), err
	},
	"quote": strconv.Quote,
}

// Generate creates <parent>/<username>/<name> from the NApp templates. The
// namespace directory is reused when present, the NApp directory must not
// exist yet.
func Generate(parent string, data *Data, opts Options) (*Result, error) {
	for _, s := range []string{data.Username, data.Name} {
		if !napp.ValidName(s) {
			return nil, fmt.Errorf("invalid name %q: must start with a letter, contain only letters, numbers or underscores and be at least three characters long", s)
		}
	}

	nsDir := filepath.Join(parent, data.Username)
	if err := os.MkdirAll(nsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating namespace directory: %w", err)
	}
	initFile := filepath.Join(nsDir, "__init__.py")
	if _, err := os.Stat(initFile); errors.Is(err, fs.ErrNotExist) {
		doc := fmt.Sprintf("\"\"\"NApps for the user %s.\"\"\"\n", data.Username)
		if err := os.WriteFile(initFile, []byte(doc), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", initFile, err)
		}
	}

	outputDir := filepath.Join(nsDir, data.Name)
	if err := os.Mkdir(outputDir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%s already exists; remove it or pick another name", outputDir)
		}
		return nil, fmt.Errorf("creating NApp directory: %w", err)
	}

	result := &Result{OutputDir: outputDir}
	err := fs.WalkDir(templatesFS, nappTemplates, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, nappTemplates), "/")
		if d.IsDir() {
			if rel == uiDir && opts.Meta {
				return fs.SkipDir
			}
			return nil
		}
		out := strings.TrimSuffix(rel, tmplSuffix)
		if opts.Meta && metaOnly[out] {
			return nil
		}
		if err := render(p, filepath.Join(outputDir, filepath.FromSlash(out)), data); err != nil {
			return err
		}
		result.Files = append(result.Files, out)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !opts.Meta {
		for _, section := range UISections {
			if err := os.MkdirAll(filepath.Join(outputDir, uiDir, section), 0o755); err != nil {
				return nil, fmt.Errorf("creating ui section %s: %w", section, err)
			}
		}
	}

	for _, line := range []string{"*" + packaging.Extension, "__pycache__/"} {
		if err := packaging.AppendIgnore(outputDir, line); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Could not update %s: %v", packaging.IgnoreFile, err))
			break
		}
	}

	valResult, valErr := manifest.ValidateFile(filepath.Join(outputDir, manifest.FileName))
	if valErr != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not validate %s: %v", manifest.FileName, valErr))
	} else if !valResult.Valid {
		for _, issue := range valResult.Issues {
			msg := issue.Message
			if issue.Path != "" {
				msg = issue.Path + ": " + msg
			}
			result.Warnings = append(result.Warnings, msg)
		}
	}

	return result, nil
}

func render(tmplPath, outPath string, data any) error {
	tmplBytes, err := fs.ReadFile(templatesFS, tmplPath)
	if err != nil {
		return fmt.Errorf("reading template %s: %w", tmplPath, err)
	}
	tmpl, err := template.New(path.Base(tmplPath)).Funcs(funcs).Parse(string(tmplBytes))
	if err != nil {
		return fmt.Errorf("parsing template %s: %w", tmplPath, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing template %s: %w", tmplPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}
