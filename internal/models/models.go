package models

import (
	"time"
)

// Campos do cartão, na ordem usada no ledger e nas mensagens.
const (
	FieldNameJP     = "name_jp"
	FieldNameEN     = "name_en"
	FieldCompany    = "company"
	FieldPostalCode = "postal_code"
	FieldAddress    = "address"
	FieldEmail      = "email"
	FieldWebsite    = "website"
	FieldPhone      = "phone"
)

var ScanFields = []string{
	FieldNameJP,
	FieldNameEN,
	FieldCompany,
	FieldPostalCode,
	FieldAddress,
	FieldEmail,
	FieldWebsite,
	FieldPhone,
}

func IsScanField(field string) bool {
	for _, f := range ScanFields {
		if f == field {
			return true
		}
	}
	return false
}

// AttachmentRef aponta para um arquivo enviado na conversa.
type AttachmentRef struct {
	ID       string `json:"id"`
	URL      string `json:"url" binding:"required"`
	MimeType string `json:"mimeType"`
	Name     string `json:"name"`
	FileType string `json:"fileType"`
}

// ScanRecord guarda os campos extraídos de um cartão de visita.
type ScanRecord map[string]string

// NewScanRecord cria um registro com todos os campos vazios.
func NewScanRecord() ScanRecord {
	r := make(ScanRecord, len(ScanFields))
	for _, f := range ScanFields {
		r[f] = ""
	}
	return r
}

func (r ScanRecord) Clone() ScanRecord {
	c := make(ScanRecord, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// DisplayName é o nome usado nas mensagens e no assunto do e-mail.
func (r ScanRecord) DisplayName() string {
	if r[FieldNameJP] != "" {
		return r[FieldNameJP]
	}
	return r[FieldNameEN]
}

type Identity struct {
	ID          string `json:"id" binding:"required"`
	DisplayName string `json:"displayName"`
}

// Label prefere o nome de exibição e cai para o ID.
func (i Identity) Label() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.ID
}

type AttachmentBatch struct {
	ConversationID string          `json:"conversationId" binding:"required"`
	Attachments    []AttachmentRef `json:"attachments" binding:"required,min=1,dive"`
	Credential     string          `json:"-"`
}

// UserAction é um clique de botão. Scan é o número da leitura que o botão mostrava.
type UserAction struct {
	ConversationID string            `json:"conversationId" binding:"required"`
	ActionID       string            `json:"actionId" binding:"required"`
	Scan           int               `json:"scan"`
	Actor          Identity          `json:"actor"`
	FormValues     map[string]string `json:"formValues,omitempty"`
}

type LedgerRow struct {
	ID             string     `json:"id"`
	Timestamp      time.Time  `json:"timestamp"`
	Actor          string     `json:"actor"`
	ConversationID string     `json:"conversationId"`
	Record         ScanRecord `json:"record"`
}

// LedgerHeader descreve as colunas de LedgerRow.Values.
func LedgerHeader() []string {
	return append([]string{"id", "timestamp", "actor"}, ScanFields...)
}

func (r LedgerRow) Values() []string {
	values := []string{r.ID, r.Timestamp.Format(time.RFC3339), r.Actor}
	for _, f := range ScanFields {
		values = append(values, r.Record[f])
	}
	return values
}
