// Package localizer looks up UI strings by key and fills in {{name}}
// placeholders.
package localizer

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"storefront/internal/domain"
)

//go:embed locales/*.json
var builtin embed.FS

// Strings maps a language to its key -> template table.
type Strings map[string]map[string]string

// T translates key, substituting vars into the template.
type T func(key string, vars map[string]string) string

// GetT returns a translator for lang. A key missing from the table for lang
// translates to itself. Only placeholders named in vars are replaced; others
// stay in the output as written.
func GetT(tables Strings, lang string) T {
	table := tables[resolve(tables, lang)]
	return func(key string, vars map[string]string) string {
		s, ok := table[key]
		if !ok || s == "" {
			return key
		}
		return substitute(s, vars)
	}
}

func substitute(s string, vars map[string]string) string {
	if len(vars) == 0 {
		return s
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		s = strings.ReplaceAll(s, "{{"+name+"}}", vars[name])
	}
	return s
}

// resolve picks the table for lang, falling back to the closest available
// language (fr-CA -> fr). It returns lang itself when nothing is close.
func resolve(tables Strings, lang string) string {
	if _, ok := tables[lang]; ok {
		return lang
	}
	want, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	slices.Sort(names)
	tags := make([]language.Tag, 0, len(names))
	keep := names[:0]
	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		keep = append(keep, name)
	}
	if len(tags) == 0 {
		return lang
	}
	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return lang
	}
	return keep[idx]
}

// Localizer holds the loaded tables and the active language.
type Localizer struct {
	strings Strings
	lang    string
	t       T
}

// Load reads the built-in tables, then any <lang>.json in dir on top of them.
// An empty dir uses the built-in tables only.
func Load(dir, lang string) (*Localizer, error) {
	tables := Strings{}
	if err := readTables(builtin, "locales", tables); err != nil {
		return nil, err
	}
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("locales dir: %w", err)
		}
		if err := readTables(os.DirFS(dir), ".", tables); err != nil {
			return nil, err
		}
	}
	return New(tables, lang), nil
}

func New(tables Strings, lang string) *Localizer {
	if lang == "" {
		lang = "en"
	}
	return &Localizer{strings: tables, lang: lang, t: GetT(tables, lang)}
}

func (l *Localizer) Lang() string { return l.lang }

func (l *Localizer) T(key string, vars map[string]string) string {
	return l.t(key, vars)
}

// Localize renders s. An empty key renders as the empty string.
func (l *Localizer) Localize(s domain.LocalizedString) string {
	if s.Key == "" {
		return ""
	}
	return l.t(s.Key, s.Variables)
}

func readTables(fsys fs.FS, dir string, into Strings) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		raw, err := fs.ReadFile(fsys, pathJoin(dir, e.Name()))
		if err != nil {
			return err
		}
		var table map[string]string
		if err := json.Unmarshal(raw, &table); err != nil {
			return fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		lang := strings.TrimSuffix(e.Name(), ".json")
		if into[lang] == nil {
			into[lang] = map[string]string{}
		}
		for k, v := range table {
			into[lang][k] = v
		}
	}
	return nil
}

func pathJoin(dir, name string) string {
	if dir == "." {
		return name
	}
	return dir + "/" + name
}
