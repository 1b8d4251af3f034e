package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScanRecordHasEveryField(t *testing.T) {
	r := NewScanRecord()
	assert.Len(t, r, len(ScanFields))
	for _, f := range ScanFields {
		v, ok := r[f]
		assert.True(t, ok, f)
		assert.Empty(t, v)
	}
}

func TestScanRecordDisplayName(t *testing.T) {
	r := NewScanRecord()
	r[FieldNameEN] = "Taro Yamada"
	assert.Equal(t, "Taro Yamada", r.DisplayName())
	r[FieldNameJP] = "山田太郎"
	assert.Equal(t, "山田太郎", r.DisplayName())
}

func TestSlackFileRefPrefersDownloadURL(t *testing.T) {
	f := SlackFile{ID: "F1", URLPrivate: "https://files/a", URLPrivateDownload: "https://files/a/download"}
	assert.Equal(t, "https://files/a/download", f.Ref().URL)

	f.URLPrivateDownload = ""
	assert.Equal(t, "https://files/a", f.Ref().URL)
}

func TestSlackStateFormValues(t *testing.T) {
	raw := `{"values":{"edit_name":{"name":{"type":"plain_text_input","value":"山田"}},"edit_phone":{"phone":{"type":"plain_text_input","value":null}}}}`
	var state SlackState
	require.NoError(t, json.Unmarshal([]byte(raw), &state))

	values := state.FormValues()
	assert.Equal(t, map[string]string{"name": "山田", "phone": ""}, values)

	var empty *SlackState
	assert.Empty(t, empty.FormValues())
}

func TestLedgerRowValuesFollowHeader(t *testing.T) {
	record := NewScanRecord()
	record[FieldCompany] = "ACME"
	row := LedgerRow{
		ID:        "row-1",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Actor:     "alice",
		Record:    record,
	}

	values := row.Values()
	header := LedgerHeader()
	require.Len(t, values, len(header))
	assert.Equal(t, "2026-01-02T03:04:05Z", values[1])
	assert.Equal(t, "ACME", values[indexOf(header, FieldCompany)])
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
