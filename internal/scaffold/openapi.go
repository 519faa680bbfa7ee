package scaffold

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/kytos/kytos-utils/internal/manifest"
	"github.com/kytos/kytos-utils/internal/packaging"
)

const (
	// MainFile holds the NApp class and its @rest routes.
	MainFile = "main.py"

	openAPITemplate = "templates/openapi.yml.tmpl"

	defaultSummary     = "TODO write the summary."
	defaultDescription = "TODO write/remove the description"
)

var (
	// One or more @rest decorators followed by the first docstring.
	decoratedFunc = regexp.MustCompile(`((?:@rest\([^\n]*\)[ \t]*\n[ \t]*)+)(?s:.+?)"""((?s:.+?))"""`)
	restDecorator = regexp.MustCompile(`@rest\(\s*(?:'([^']+)'|"([^"]+)")(?:\s*,\s*methods\s*=\s*(\[[^\]]*\]))?`)
	ruleType      = regexp.MustCompile(`<\w+?:`)
	docstringYAML = regexp.MustCompile(`(?m)^\s*-{3,}`)
	spaceRun      = regexp.MustCompile(`\s{2,}`)
)

// Operation documents one HTTP method of a path.
type Operation struct {
	Method      string
	Summary     string
	Description string
}

// Path is an OpenAPI path with its operations sorted by method.
type Path struct {
	Path       string
	Operations []Operation
}

// ParseRoutes extracts the routes declared with @rest in the Python source
// of username/name. Rules are made absolute under /api/<username>/<name>/
// and Flask converters become OpenAPI parameters. Methods default to GET.
func ParseRoutes(code, username, name string) ([]Path, error) {
	prefix := fmt.Sprintf("/api/%s/%s/", username, name)
	paths := make(map[string]map[string]Operation)

	for _, fn := range decoratedFunc.FindAllStringSubmatch(code, -1) {
		summary, description := parseDocstring(fn[2])
		for _, dec := range restDecorator.FindAllStringSubmatch(fn[1], -1) {
			rule := dec[1] + dec[2]
			methods, err := parseMethods(dec[3])
			if err != nil {
				return nil, fmt.Errorf("route %q: %w", rule, err)
			}
			p := rulePath(prefix + strings.TrimPrefix(rule, "/"))
			ops := paths[p]
			if ops == nil {
				ops = make(map[string]Operation)
				paths[p] = ops
			}
			for _, m := range methods {
				m = strings.ToLower(m)
				ops[m] = Operation{Method: m, Summary: summary, Description: description}
			}
		}
	}

	out := make([]Path, 0, len(paths))
	for p, ops := range paths {
		entry := Path{Path: p}
		for _, op := range ops {
			entry.Operations = append(entry.Operations, op)
		}
		sort.Slice(entry.Operations, func(i, j int) bool {
			return entry.Operations[i].Method < entry.Operations[j].Method
		})
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// rulePath converts a Flask rule such as /flows/<int:id> into /flows/{id}.
func rulePath(rule string) string {
	typeless := ruleType.ReplaceAllString(rule, "<")
	return strings.NewReplacer("<", "{", ">", "}").Replace(typeless)
}

// parseMethods reads a Python list literal of method names.
func parseMethods(list string) ([]string, error) {
	if list == "" {
		return []string{"GET"}, nil
	}
	var methods []string
	if err := json.Unmarshal([]byte(strings.ReplaceAll(list, "'", `"`)), &methods); err != nil {
		return nil, fmt.Errorf("parsing methods %s: %w", list, err)
	}
	return methods, nil
}

// parseDocstring splits a PEP 257 docstring into its summary line and the
// description paragraph(s) after the blank line, up to a "---" YAML block.
func parseDocstring(doc string) (summary, description string) {
	summary, description = defaultSummary, defaultDescription

	lines := strings.Split(strings.TrimSpace(doc), "\n")
	if first := strings.TrimSpace(lines[0]); first != "" {
		summary = first
	}
	if len(lines) < 3 || strings.TrimSpace(lines[1]) != "" {
		return summary, description
	}

	rest := strings.Join(lines[2:], "\n")
	if loc := docstringYAML.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	if rest = strings.TrimSpace(rest); rest != "" {
		description = spaceRun.ReplaceAllString(rest, " ")
	}
	return summary, description
}

type openAPIDoc struct {
	Title       string
	Version     string
	Description string
	Paths       []Path
}

// OpenAPIPath returns where Prepare writes the document of the NApp in dir.
func OpenAPIPath(dir string) string {
	return filepath.Join(dir, packaging.OpenAPIFile)
}

// Prepare renders openapi.yml for the NApp in dir from its kytos.json and
// main.py, overwriting any existing document. It returns the file written.
func Prepare(dir string) (string, error) {
	meta, err := manifest.Parse(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return "", err
	}
	code, err := os.ReadFile(filepath.Join(dir, MainFile))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", MainFile, err)
	}

	paths, err := ParseRoutes(string(code), meta.Namespace(), meta.Name)
	if err != nil {
		return "", err
	}
	doc := openAPIDoc{
		Title:       meta.Key().String(),
		Version:     meta.Version,
		Description: meta.Description,
		Paths:       paths,
	}

	tmplBytes, err := templatesFS.ReadFile(openAPITemplate)
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}
	tmpl, err := template.New("openapi").Funcs(funcs).Parse(string(tmplBytes))
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("rendering %s: %w", packaging.OpenAPIFile, err)
	}

	out := OpenAPIPath(dir)
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	return out, nil
}
