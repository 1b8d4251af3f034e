package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	t.Parallel()
	ts := NewTextSanitizer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"japanese untouched", "株式会社サンプル", "株式会社サンプル"},
		{"trims", "  taro@example.com \n", "taro@example.com"},
		{"control chars", "03-\x001234-\x075678", "03-1234-5678"},
		{"zero width", "ya\u200bma\ufeffda", "yamada"},
		{"multi line address", "東京都千代田区\n丸の内1-1\r\n", "東京都千代田区 丸の内1-1"},
		{"nbsp", "ACME\u00a0Inc", "ACME Inc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ts.SanitizeText(tt.in))
		})
	}
}
