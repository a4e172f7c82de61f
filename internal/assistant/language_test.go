package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"", LangEnglish},
		{"Hello, when is the next event?", LangEnglish},
		{"ሰላም እንዴት ነህ", LangAmharic},
		{"please check ሰላም", LangAmharic},
		{"Kushe, aw yu de?", LangKrio},
		{"wetin na di nɛks ivɛnt", LangKrio},
		{"tenki boku", LangKrio},
		{"bonjour mes amis", LangEnglish},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.text), "text: %q", tt.text)
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(LangEnglish))
	assert.True(t, Supported(LangAmharic))
	assert.True(t, Supported(LangKrio))
	assert.False(t, Supported("fr"))
	assert.False(t, Supported(""))
}
