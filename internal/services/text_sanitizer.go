package services

import (
	"regexp"
	"strings"
)

var (
	// Controle C0 exceto \t \n \r, mais DEL e C1
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x9F]`)
	zeroWidthRegex    = regexp.MustCompile(`[\x{200B}-\x{200D}\x{2060}\x{FEFF}]`)
	lineSepRegex      = regexp.MustCompile(`[\x{00A0}\x{2028}\x{2029}\x{0085}]`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
)

// TextSanitizer limpa os valores devolvidos pelo modelo antes de irem para o registro.
type TextSanitizer struct{}

func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{}
}

// SanitizeText remove caracteres de controle e invisíveis, junta espaços e quebras
// de linha num único espaço e apara as pontas. Texto em japonês passa intacto.
func (ts *TextSanitizer) SanitizeText(text string) string {
	if text == "" {
		return ""
	}

	sanitized := controlCharsRegex.ReplaceAllString(text, "")
	sanitized = zeroWidthRegex.ReplaceAllString(sanitized, "")
	sanitized = lineSepRegex.ReplaceAllString(sanitized, " ")

	// Espaço ideográfico (U+3000) é mantido; só espaços ASCII colapsam
	sanitized = whitespaceRegex.ReplaceAllString(sanitized, " ")

	return strings.TrimSpace(sanitized)
}

// SanitizeRecord aplica SanitizeText em todos os valores.
func (ts *TextSanitizer) SanitizeRecord(values map[string]string) {
	for k, v := range values {
		values[k] = ts.SanitizeText(v)
	}
}
