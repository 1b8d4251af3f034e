package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"meishi-bot/internal/logger"
	"meishi-bot/internal/models"

	"github.com/sirupsen/logrus"
)

const CardInstruction = "You are a precise business card parser for Japanese and English cards. " +
	"Return strict JSON per the schema. Missing fields should be empty strings. " +
	"The postal_code field must contain the postal code only. " +
	"Do not include the postal code in the address field."

// VisionModel é o modelo multimodal que lê a imagem e devolve texto JSON.
type VisionModel interface {
	Infer(ctx context.Context, image []byte, mimeType string, schema ResponseSchema, instruction string) (string, error)
}

type SchemaProperty struct {
	Name        string
	Description string
}

// ResponseSchema descreve um objeto JSON com propriedades string.
type ResponseSchema struct {
	Properties []SchemaProperty
}

// JSONSchema devolve o schema no formato JSON Schema.
func (s ResponseSchema) JSONSchema() map[string]any {
	props := map[string]any{}
	for _, p := range s.Properties {
		prop := map[string]any{"type": "string"}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
	}
	return map[string]any{"type": "object", "properties": props}
}

var CardSchema = ResponseSchema{Properties: []SchemaProperty{
	{Name: models.FieldNameJP, Description: "Person name as written in Japanese"},
	{Name: models.FieldNameEN, Description: "Person name in Latin letters"},
	{Name: models.FieldCompany},
	{Name: models.FieldPostalCode, Description: "Postal code only, e.g. 100-0005"},
	{Name: models.FieldAddress, Description: "Address without the postal code"},
	{Name: models.FieldEmail},
	{Name: models.FieldWebsite},
	{Name: models.FieldPhone},
}}

const inferTimeout = 60 * time.Second

type CardExtractor struct {
	model     VisionModel
	sanitizer *TextSanitizer
	maxSide   int
}

func NewCardExtractor(model VisionModel, sanitizer *TextSanitizer, maxSide int) *CardExtractor {
	if sanitizer == nil {
		sanitizer = NewTextSanitizer()
	}
	return &CardExtractor{
		model:     model,
		sanitizer: sanitizer,
		maxSide:   maxSide,
	}
}

// Extract lê o cartão da imagem e devolve um registro com todos os campos.
func (e *CardExtractor) Extract(ctx context.Context, imageData []byte) (models.ScanRecord, error) {
	jpeg, err := NormalizeImage(imageData, e.maxSide)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, inferTimeout)
	defer cancel()

	start := time.Now()
	text, err := e.model.Infer(ctx, jpeg, "image/jpeg", CardSchema, CardInstruction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	record, err := ParseCardJSON(text)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"response": truncate(text, 200),
		}).Warn("Model returned unparseable output")
		return nil, err
	}
	e.sanitizer.SanitizeRecord(record)

	logger.WithFields(logrus.Fields{
		"duration": time.Since(start).String(),
		"company":  record[models.FieldCompany],
	}).Info("Card extracted")

	return record, nil
}

// ParseCardJSON tenta o texto inteiro e, se falhar, o trecho entre o primeiro '{'
// e o último '}'. Campos ausentes viram "".
func ParseCardJSON(text string) (models.ScanRecord, error) {
	raw, err := decodeObject(text)
	if err != nil {
		left, right := strings.Index(text, "{"), strings.LastIndex(text, "}")
		if left < 0 || right <= left {
			return nil, fmt.Errorf("%w: no JSON object in model output", ErrExtraction)
		}
		raw, err = decodeObject(text[left : right+1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
		}
	}

	// Variante antiga do schema usava "name"
	if _, ok := raw[models.FieldNameJP]; !ok {
		if v, ok := raw["name"]; ok {
			raw[models.FieldNameJP] = v
		}
	}

	record := models.NewScanRecord()
	for _, f := range models.ScanFields {
		record[f] = stringify(raw[f])
	}
	return record, nil
}

func decodeObject(text string) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("model output is null")
	}
	return raw, nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// truncate corta em até n bytes sem partir um caractere UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
