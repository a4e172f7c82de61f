package assistant

import "strings"

// Supported language codes: English, Amharic, Sierra Leonean Krio.
const (
	LangEnglish = "en"
	LangAmharic = "am"
	LangKrio    = "kri"
)

var krioIndicators = []string{
	"kushe", "aw di go", "aw di bɔdi", "aw di tɛm", "aw yu du", "aw yu de",
	"a de", "i de", "u de", "wi de", "una de", "sabi", "pikin",
	"chop", "boku", "abeg", "wetin", "ehn", "wetin na", "mek",
	"tink", "nɔ", "kam", "tenki", "tɛnki", "a bɛg",
}

// DetectLanguage guesses the language of text. Amharic is recognized by its
// Unicode block, Krio by indicator phrases; everything else is English.
func DetectLanguage(text string) string {
	if text == "" {
		return LangEnglish
	}
	for _, r := range text {
		if r >= 0x1200 && r <= 0x137F {
			return LangAmharic
		}
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range krioIndicators {
		if strings.Contains(lower, w) {
			return LangKrio
		}
	}
	return LangEnglish
}

// Supported reports whether code is a language this gateway can answer in.
func Supported(code string) bool {
	switch code {
	case LangEnglish, LangAmharic, LangKrio:
		return true
	}
	return false
}
