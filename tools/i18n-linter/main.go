// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the message catalogs for consistency. It scans Go
// sources for i18n.T/Tf calls and compares the keys against every YAML
// catalog. Keys built at runtime from a literal prefix (i18n.T("error."+...))
// count as used for every catalog key under that prefix.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

// Report is the outcome of one lint run.
type Report struct {
	Used     int
	Missing  map[string][]string // catalog file -> keys present in the primary catalog only
	Unknown  []string            // keys used in code but absent from the primary catalog
	Orphaned []string            // primary keys nothing refers to
}

// Failed reports whether the catalogs need fixing. Orphans are warnings.
func (r Report) Failed() bool {
	if len(r.Unknown) > 0 {
		return true
	}
	for _, keys := range r.Missing {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func main() {
	rep, err := lint(projectRoot, localesDir, primaryLocale)
	if err != nil {
		fmt.Printf("i18n-linter: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d keys referenced in source code\n", rep.Used)
	for _, k := range rep.Unknown {
		fmt.Printf("  unknown:  %s\n", k)
	}
	files := make([]string, 0, len(rep.Missing))
	for f := range rep.Missing {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		for _, k := range rep.Missing[f] {
			fmt.Printf("  missing:  %s in %s\n", k, f)
		}
	}
	for _, k := range rep.Orphaned {
		fmt.Printf("  orphaned: %s\n", k)
	}
	if rep.Failed() {
		os.Exit(1)
	}
}

func lint(root, dir, primary string) (Report, error) {
	exact, prefixes, err := findUsedKeys(root)
	if err != nil {
		return Report{}, fmt.Errorf("scan sources: %w", err)
	}
	primaryKeys, err := loadKeysFromLocale(filepath.Join(dir, primary))
	if err != nil {
		return Report{}, fmt.Errorf("load %s: %w", primary, err)
	}

	rep := Report{Used: len(exact), Missing: map[string][]string{}}
	for k := range exact {
		if _, ok := primaryKeys[k]; !ok {
			rep.Unknown = append(rep.Unknown, k)
		}
	}
	for k := range primaryKeys {
		if !isUsed(k, exact, prefixes) {
			rep.Orphaned = append(rep.Orphaned, k)
		}
	}
	sort.Strings(rep.Unknown)
	sort.Strings(rep.Orphaned)

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return Report{}, err
	}
	for _, f := range files {
		if filepath.Base(f) == primary {
			continue
		}
		keys, err := loadKeysFromLocale(f)
		if err != nil {
			return Report{}, fmt.Errorf("load %s: %w", f, err)
		}
		var missing []string
		for k := range primaryKeys {
			if _, ok := keys[k]; !ok {
				missing = append(missing, k)
			}
		}
		sort.Strings(missing)
		rep.Missing[filepath.Base(f)] = missing
	}
	return rep, nil
}

func isUsed(key string, exact, prefixes map[string]struct{}) bool {
	if _, ok := exact[key]; ok {
		return true
	}
	for p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

var (
	exactRe  = regexp.MustCompile(`i18n\.Tf?\("([^"]+)"\s*[,)]`)
	prefixRe = regexp.MustCompile(`i18n\.Tf?\("([^"]+\.)"\s*\+`)
)

// findUsedKeys returns literal keys and the literal prefixes of keys that are
// concatenated at runtime.
func findUsedKeys(root string) (exact, prefixes map[string]struct{}, err error) {
	exact = map[string]struct{}{}
	prefixes = map[string]struct{}{}
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case "tools", "_examples", ".git":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range exactRe.FindAllStringSubmatch(string(content), -1) {
			exact[m[1]] = struct{}{}
		}
		for _, m := range prefixRe.FindAllStringSubmatch(string(content), -1) {
			prefixes[m[1]] = struct{}{}
		}
		return nil
	})
	return exact, prefixes, err
}

// loadKeysFromLocale reads a YAML catalog and returns its dot-joined leaf keys.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := map[string]struct{}{}
	flattenYAML("", data, keys)
	return keys, nil
}

func flattenYAML(prefix string, node any, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
