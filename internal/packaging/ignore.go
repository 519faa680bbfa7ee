package packaging

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFile is the file ignore rules are read from.
const IgnoreFile = ".gitignore"

type ignoreRule struct {
	pattern string
	negate  bool
	dirOnly bool
}

// IgnoreRules decides which files stay out of a package. It understands the
// common subset of .gitignore syntax: globs with ** support, leading / to
// anchor at the root, trailing / for directories and ! to re-include.
type IgnoreRules struct {
	rules []ignoreRule
}

// NewIgnoreRules parses lines in .gitignore syntax.
func NewIgnoreRules(lines ...string) *IgnoreRules {
	r := &IgnoreRules{}
	for _, line := range lines {
		r.add(line)
	}
	return r
}

// LoadIgnoreRules reads dir/.gitignore and the user's ~/.gitignore. .git is
// always ignored. Missing files are fine.
func LoadIgnoreRules(dir string) (*IgnoreRules, error) {
	r := NewIgnoreRules(".git/")
	files := []string{filepath.Join(dir, IgnoreFile)}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, IgnoreFile))
	}
	for _, f := range files {
		if err := r.addFile(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *IgnoreRules) addFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		r.add(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}

func (r *IgnoreRules) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	var rule ignoreRule
	if strings.HasPrefix(line, "!") {
		rule.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		rule.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	switch {
	case strings.HasPrefix(line, "/"):
		line = strings.TrimPrefix(line, "/")
	case !strings.Contains(line, "/"):
		// A bare name matches at any depth.
		line = "**/" + line
	}
	if line == "" {
		return
	}
	rule.pattern = line
	r.rules = append(r.rules, rule)
}

// Ignored reports whether rel, a slash separated path relative to the
// package root, is left out. Later rules override earlier ones, and a path
// inside an ignored directory is ignored too.
func (r *IgnoreRules) Ignored(rel string, isDir bool) bool {
	rel = path.Clean(filepath.ToSlash(rel))

	// An ignored parent directory excludes everything below it.
	if parent := path.Dir(rel); parent != "." && r.Ignored(parent, true) {
		return true
	}

	ignored := false
	for _, rule := range r.rules {
		if rule.dirOnly && !isDir {
			continue
		}
		if ok, _ := doublestar.Match(rule.pattern, rel); ok {
			ignored = !rule.negate
		}
	}
	return ignored
}

// AppendIgnore adds line to dir/.gitignore unless it is already there.
func AppendIgnore(dir, line string) error {
	name := filepath.Join(dir, IgnoreFile)

	content, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", IgnoreFile, err)
	}
	for _, l := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(l) == line {
			return nil
		}
	}

	suffix := line + "\n"
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		suffix = "\n" + suffix
	}

	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", IgnoreFile, err)
	}
	defer f.Close()

	if _, err := f.WriteString(suffix); err != nil {
		return fmt.Errorf("writing to %s: %w", IgnoreFile, err)
	}
	return nil
}
