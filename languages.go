package pdftl

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AutoDetect is the source-language sentinel that asks the backend to detect it.
const AutoDetect = "auto"

// Default language pair used when none is configured.
const (
	DefaultSourceLang = AutoDetect
	DefaultTargetLang = "pt"
)

// Language describes a selectable language.
type Language struct {
	Code string
	Name string
	Flag string
}

// AvailableLanguages are the languages offered for selection, in display order.
// Codes are the ones the translation backend accepts.
var AvailableLanguages = []Language{
	{Code: "en", Name: "English", Flag: "🇬🇧"},
	{Code: "pt", Name: "Portuguese", Flag: "🇧🇷"},
	{Code: "es", Name: "Spanish", Flag: "🇪🇸"},
	{Code: "fr", Name: "French", Flag: "🇫🇷"},
	{Code: "de", Name: "German", Flag: "🇩🇪"},
	{Code: "it", Name: "Italian", Flag: "🇮🇹"},
	{Code: "ja", Name: "Japanese", Flag: "🇯🇵"},
	{Code: "zh-cn", Name: "Chinese (Simplified)", Flag: "🇨🇳"},
	{Code: "ru", Name: "Russian", Flag: "🇷🇺"},
	{Code: "ko", Name: "Korean", Flag: "🇰🇷"},
	{Code: "ar", Name: "Arabic", Flag: "🇦🇪"},
}

// RTLLanguages contains language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
}

// LanguagePair is the source and target language of a translation.
type LanguagePair struct {
	Source string
	Target string
}

// DefaultLanguages returns the default pair (auto → pt).
func DefaultLanguages() LanguagePair {
	return LanguagePair{Source: DefaultSourceLang, Target: DefaultTargetLang}
}

func (p LanguagePair) String() string {
	return p.Source + "→" + p.Target
}

// Validate checks that the target is a concrete language and that both codes
// parse as BCP 47 tags. The source may be AutoDetect.
func (p LanguagePair) Validate() error {
	if p.Target == "" || p.Target == AutoDetect {
		return fmt.Errorf("%w: target language must be a concrete language, got %q", ErrInvalidLanguage, p.Target)
	}
	if _, err := language.Parse(p.Target); err != nil {
		return fmt.Errorf("%w: target %q: %v", ErrInvalidLanguage, p.Target, err)
	}
	if p.Source == "" {
		return fmt.Errorf("%w: source language is empty", ErrInvalidLanguage)
	}
	if p.Source != AutoDetect {
		if _, err := language.Parse(p.Source); err != nil {
			return fmt.Errorf("%w: source %q: %v", ErrInvalidLanguage, p.Source, err)
		}
	}
	return nil
}

// Swap exchanges source and target. A pair whose source is AutoDetect cannot be
// swapped and is returned unchanged with ok == false.
func (p LanguagePair) Swap() (LanguagePair, bool) {
	if p.Source == AutoDetect {
		return p, false
	}
	return LanguagePair{Source: p.Target, Target: p.Source}, true
}

// NormalizeLanguage converts a code to the backend's form (e.g. "zh_CN" → "zh-cn").
func NormalizeLanguage(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

// GetLanguageName returns the human-readable name for a language code.
// Unlisted codes fall back to the CLDR English name, then to the code itself.
func GetLanguageName(code string) string {
	if code == AutoDetect {
		return "Auto-detect"
	}
	if lang, ok := findLanguage(code); ok {
		return lang.Name
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Tags(language.English).Name(tag); name != "" {
		return name
	}
	return code
}

// GetLanguageFlag returns the flag emoji for a language code, or "" if unknown.
func GetLanguageFlag(code string) string {
	if code == AutoDetect {
		return "🔍"
	}
	if lang, ok := findLanguage(code); ok {
		return lang.Flag
	}
	return ""
}

// NextLanguage returns the language following code in AvailableLanguages,
// wrapping around. Unknown codes yield the first entry.
func NextLanguage(code string) string {
	norm := NormalizeLanguage(code)
	for i, lang := range AvailableLanguages {
		if lang.Code == norm {
			return AvailableLanguages[(i+1)%len(AvailableLanguages)].Code
		}
	}
	return AvailableLanguages[0].Code
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(code string) string {
	base := strings.SplitN(NormalizeLanguage(code), "-", 2)[0]
	if RTLLanguages[base] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(code string) bool {
	return GetDirection(code) == "rtl"
}

func findLanguage(code string) (Language, bool) {
	norm := NormalizeLanguage(code)
	for _, lang := range AvailableLanguages {
		if lang.Code == norm {
			return lang, true
		}
	}
	return Language{}, false
}
