package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const DefaultLang = "en"

type Translator struct {
	lang         string
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", langCode+".yaml")
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T returns the message for key, formatted with args; unknown keys are returned as-is.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Catalog holds one Translator per supported language.
type Catalog struct {
	byLang map[string]*Translator
}

// NewCatalog loads every language in langs; DefaultLang must be among them.
func NewCatalog(fsys fs.FS, langs ...string) (*Catalog, error) {
	c := &Catalog{byLang: make(map[string]*Translator, len(langs))}
	for _, l := range langs {
		t, err := NewTranslator(fsys, l)
		if err != nil {
			return nil, err
		}
		c.byLang[l] = t
	}
	if _, ok := c.byLang[DefaultLang]; !ok {
		return nil, fmt.Errorf("default language %q not loaded", DefaultLang)
	}
	return c, nil
}

// MustDefaultCatalog loads the embedded en, fi and sv catalogs.
func MustDefaultCatalog() *Catalog {
	c, err := NewCatalog(LocalesFS, "en", "fi", "sv")
	if err != nil {
		panic(err)
	}
	return c
}

// Match picks a translator for an Accept-Language header or a locale such as
// "fi_FI". Quality values are ignored; the first supported tag wins.
func (c *Catalog) Match(accept string) *Translator {
	for _, part := range strings.Split(accept, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		tag = strings.ToLower(strings.ReplaceAll(tag, "_", "-"))
		base := strings.SplitN(tag, "-", 2)[0]
		if t, ok := c.byLang[base]; ok {
			return t
		}
	}
	return c.byLang[DefaultLang]
}
