package languages

import (
	"testing"

	"golang.org/x/text/language"
)

func TestSupportedAndSpeechLocalesShareDomain(t *testing.T) {
	if len(Supported) != len(SpeechLocales) {
		t.Fatalf("expected %d speech locales, got %d", len(Supported), len(SpeechLocales))
	}

	for code := range Supported {
		if _, ok := SpeechLocales[code]; !ok {
			t.Fatalf("expected speech locale for %q", code)
		}
	}
	for code := range SpeechLocales {
		if _, ok := Supported[code]; !ok {
			t.Fatalf("expected display name for %q", code)
		}
	}
}

func TestSupportedHasTwelveLanguages(t *testing.T) {
	if len(Supported) != 12 {
		t.Fatalf("expected 12 supported languages, got %d", len(Supported))
	}
}

func TestSpeechLocalesAreValidTags(t *testing.T) {
	for code, locale := range SpeechLocales {
		tag, err := language.Parse(locale)
		if err != nil {
			t.Fatalf("expected %q to parse for %q: %v", locale, code, err)
		}
		if !SameBase(code, tag.String()) {
			t.Fatalf("expected locale %q to share base with %q", locale, code)
		}
	}
}

func TestLookup(t *testing.T) {
	lang, err := Lookup("ja")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lang.Name != "Japanese" || lang.Locale != "ja-JP" {
		t.Fatalf("expected Japanese/ja-JP, got %s/%s", lang.Name, lang.Locale)
	}

	if _, err := Lookup("xx"); err == nil {
		t.Fatalf("expected error for unsupported language")
	}
}

func TestSameBase(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"ja", "ja-JP", true},
		{"pt-PT", "pt-BR", true},
		{"en-US", "es-ES", false},
		{"not a tag", "en", false},
	}

	for _, c := range cases {
		if got := SameBase(c.a, c.b); got != c.want {
			t.Fatalf("SameBase(%q, %q): expected %t, got %t", c.a, c.b, c.want, got)
		}
	}
}

func TestAllIsSortedByCode(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Code >= all[i].Code {
			t.Fatalf("expected sorted codes, got %q before %q", all[i-1].Code, all[i].Code)
		}
	}
}
