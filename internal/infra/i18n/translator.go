package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// BaseLanguage fills keys missing from the selected locale.
const BaseLanguage = "en"

type Translator struct {
	lang         string
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys, layered over the
// base language.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	base, err := readLocale(fsys, BaseLanguage)
	if err != nil {
		return nil, err
	}
	layers := [][]byte{base}
	if langCode != "" && langCode != BaseLanguage {
		data, err := readLocale(fsys, langCode)
		if err != nil {
			return nil, err
		}
		layers = append(layers, data)
	}
	t, err := newTranslatorFromBytes(layers...)
	if err != nil {
		return nil, err
	}
	if langCode != "" {
		t.lang = langCode
	}
	return t, nil
}

func readLocale(fsys fs.FS, langCode string) ([]byte, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return data, nil
}

// newTranslatorFromBytes merges YAML layers; later layers win.
func newTranslatorFromBytes(layers ...[]byte) (*Translator, error) {
	merged := map[string]string{}
	for _, data := range layers {
		var translations map[string]string
		if err := yaml.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse translation file: %w", err)
		}
		for k, v := range translations {
			merged[k] = v
		}
	}
	return &Translator{lang: BaseLanguage, translations: merged}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T returns the translation for key, formatted with args. Unknown keys come
// back unchanged.
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
