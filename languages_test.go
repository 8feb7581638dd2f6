package pdftl

import (
	"errors"
	"testing"
)

func TestGetLanguageName(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"es", "Spanish"},
		{"zh_CN", "Chinese (Simplified)"}, // normalized
		{"auto", "Auto-detect"},
		{"nl", "Dutch"},              // CLDR fallback
		{"not a tag!", "not a tag!"}, // fallback to code
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			result := GetLanguageName(tt.code)
			if result != tt.expected {
				t.Errorf("GetLanguageName(%q) = %q, want %q", tt.code, result, tt.expected)
			}
		})
	}
}

func TestGetLanguageFlag(t *testing.T) {
	if GetLanguageFlag("pt") != "🇧🇷" {
		t.Errorf("unexpected flag for pt: %q", GetLanguageFlag("pt"))
	}
	if GetLanguageFlag("auto") != "🔍" {
		t.Errorf("unexpected flag for auto: %q", GetLanguageFlag("auto"))
	}
	if GetLanguageFlag("xx") != "" {
		t.Errorf("expected empty flag for unknown code")
	}
}

func TestGetDirection(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"ar", "rtl"},
		{"he_IL", "rtl"},
		{"fa-IR", "rtl"},
		{"es", "ltr"},
		{"zh-cn", "ltr"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := GetDirection(tt.code); got != tt.expected {
				t.Errorf("GetDirection(%q) = %q, want %q", tt.code, got, tt.expected)
			}
		})
	}
}

func TestLanguagePair_Validate(t *testing.T) {
	tests := []struct {
		name    string
		pair    LanguagePair
		wantErr bool
	}{
		{"auto source", LanguagePair{Source: "auto", Target: "pt"}, false},
		{"explicit source", LanguagePair{Source: "en", Target: "zh-cn"}, false},
		{"auto target", LanguagePair{Source: "en", Target: "auto"}, true},
		{"empty target", LanguagePair{Source: "en"}, true},
		{"empty source", LanguagePair{Target: "es"}, true},
		{"garbage target", LanguagePair{Source: "auto", Target: "??"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pair.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidLanguage) {
				t.Errorf("expected ErrInvalidLanguage, got %v", err)
			}
		})
	}
}

func TestLanguagePair_Swap(t *testing.T) {
	swapped, ok := LanguagePair{Source: "en", Target: "es"}.Swap()
	if !ok || swapped.Source != "es" || swapped.Target != "en" {
		t.Errorf("unexpected swap result: %+v (ok=%v)", swapped, ok)
	}

	auto := LanguagePair{Source: "auto", Target: "es"}
	same, ok := auto.Swap()
	if ok || same != auto {
		t.Errorf("auto source should not swap, got %+v (ok=%v)", same, ok)
	}
}

func TestNextLanguage(t *testing.T) {
	if got := NextLanguage("en"); got != "pt" {
		t.Errorf("NextLanguage(en) = %q, want pt", got)
	}
	last := AvailableLanguages[len(AvailableLanguages)-1].Code
	if got := NextLanguage(last); got != AvailableLanguages[0].Code {
		t.Errorf("NextLanguage should wrap, got %q", got)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	if got := NormalizeLanguage(" zh_CN "); got != "zh-cn" {
		t.Errorf("NormalizeLanguage = %q, want zh-cn", got)
	}
}
