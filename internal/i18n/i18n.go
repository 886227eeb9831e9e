// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package i18n localizes command descriptions, report labels and error
// titles from YAML catalogs embedded in the binary.
package i18n // import "github.com/hostwarden/hostwarden/internal/i18n"

import (
	"embed"
	"io/fs"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	current   string
)

// Init loads every embedded catalog and selects lang. Unknown languages fall
// back to English.
func Init(lang string) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		_, _ = b.ParseMessageFileBytes(data, f.Name())
	}

	mu.Lock()
	defer mu.Unlock()
	bundle = b
	localizer = i18n.NewLocalizer(b, lang, "en")
	current = lang
}

// Lang returns the language passed to the last Init.
func Lang() string {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Languages lists the tags with an embedded catalog.
func Languages() []string {
	ensure()
	mu.RLock()
	defer mu.RUnlock()
	var out []string
	for _, t := range bundle.LanguageTags() {
		out = append(out, t.String())
	}
	return out
}

func ensure() {
	mu.RLock()
	ready := localizer != nil
	mu.RUnlock()
	if !ready {
		Init("en")
	}
}

// T translates messageID, returning the ID itself when no catalog has it.
func T(messageID string) string {
	return Tf(messageID, nil)
}

// Tf translates messageID with template data.
func Tf(messageID string, data map[string]any) string {
	ensure()
	mu.RLock()
	l := localizer
	mu.RUnlock()
	msg, err := l.Localize(&i18n.LocalizeConfig{MessageID: messageID, TemplateData: data})
	if err != nil && msg == "" {
		return messageID
	}
	return msg
}
