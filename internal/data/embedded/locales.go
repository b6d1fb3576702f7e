// Package embedded provides access to embedded data assets.
// This file exposes the localization string tables shipped with the widget,
// one YAML file per language code.
package embedded

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// LocaleFS contains all embedded localization tables.
//
//go:embed locales/*.yaml
var LocaleFS embed.FS

// LoadLocale parses the string table for the given language code.
// Returns an error for unknown codes or malformed tables.
func LoadLocale(code string) (map[string]string, error) {
	data, err := LocaleFS.ReadFile(path.Join("locales", code+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown locale %q: %w", code, err)
	}

	table := make(map[string]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("malformed locale table %q: %w", code, err)
	}
	return table, nil
}

// AvailableLocales lists the language codes with embedded tables.
func AvailableLocales() []string {
	entries, err := LocaleFS.ReadDir("locales")
	if err != nil {
		return nil
	}

	codes := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") {
			codes = append(codes, strings.TrimSuffix(name, ".yaml"))
		}
	}
	return codes
}
