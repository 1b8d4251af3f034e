package services

import (
	"fmt"
	"strconv"
	"strings"

	"meishi-bot/internal/models"
)

// IDs dos botões e do formulário de edição.
const (
	ActionSaveText    = "save_text"
	ActionEditText    = "edit_text"
	ActionSaveChanges = "save_changes"

	// Alias antigo aceito no formulário para name_jp
	FormFieldName = "name"
)

const (
	MsgReading           = "読み込んでいます..."
	MsgMissingBotToken   = "内部設定エラー（Bot token 未設定）。インストール設定を確認してください。"
	MsgDownloadFailed    = "画像のダウンロードに失敗しました。もう一度お試しください。"
	MsgExtractionFailed  = "画像の解析に失敗しました。もう一度お試しください。"
	MsgSaved             = "保存しました。"
	MsgSaveFailed        = "❌ 保存に失敗しました: %s"
	MsgNoEmail           = "メールアドレスが読み取れなかったため、Gmail作成リンクを生成できません。"
	MsgInvalidEmail      = "メールアドレスの形式が正しくないため、Gmail作成リンクを生成できません: %s"
	MsgNoFormData        = "❌ フォームデータが取得できませんでした。もう一度お試しください。"
	MsgChangesSaved      = "変更内容を保存しました:\n"
	MsgEditPrompt        = "該当項目を変更してください。"
	MsgReadComplete      = "読み取り完了。"
	MsgChooseAction      = "読み取り結果に対してアクションを選んでください"
	MsgEditFallback      = "変更したい項目を選んでください"
	MsgProgress          = "画像を処理しています (%d/%d)"
	MsgSkipped           = "画像ではないためスキップしました: %s"
	MsgEmailLinksHeading = "保存した内容をもとにGmailを送信:"
)

var fieldLabels = map[string]string{
	models.FieldNameJP:     "名前",
	models.FieldNameEN:     "名前(英字)",
	models.FieldCompany:    "会社名",
	models.FieldPostalCode: "郵便番号",
	models.FieldAddress:    "会社住所",
	models.FieldEmail:      "Email",
	models.FieldWebsite:    "ウェブサイト",
	models.FieldPhone:      "電話番号",
}

// Campos exibidos no resumo e no formulário de edição, nessa ordem.
var editFields = []string{
	models.FieldNameJP,
	models.FieldCompany,
	models.FieldPostalCode,
	models.FieldAddress,
	models.FieldEmail,
	models.FieldWebsite,
	models.FieldPhone,
}

func FieldLabel(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}

func TextMessage(text string) models.OutboundMessage {
	return models.OutboundMessage{Text: text}
}

func plainText(text string) *models.TextObject {
	return &models.TextObject{Type: "plain_text", Text: text}
}

func ProgressMessage(current, total int) models.OutboundMessage {
	return TextMessage(fmt.Sprintf(MsgProgress, current, total))
}

func SkippedMessage(ref models.AttachmentRef) models.OutboundMessage {
	name := ref.Name
	if name == "" {
		name = ref.ID
	}
	return TextMessage(fmt.Sprintf(MsgSkipped, name))
}

// SummaryMessage mostra o resultado da leitura com os botões salvar/editar.
// Os botões levam o número da leitura para descartar cliques antigos.
func SummaryMessage(record models.ScanRecord, scan int) models.OutboundMessage {
	var sb strings.Builder
	sb.WriteString(MsgReadComplete)
	for _, f := range editFields {
		fmt.Fprintf(&sb, "\n%s: %s", FieldLabel(f), record[f])
	}

	return models.OutboundMessage{
		Text: sb.String(),
		Blocks: []models.Block{
			{Type: "section", Text: &models.TextObject{Type: "mrkdwn", Text: sb.String()}},
			{
				Type: "actions",
				Elements: []models.Element{
					{Type: "button", Text: plainText("保存する"), Style: "primary", ActionID: ActionSaveText, Value: strconv.Itoa(scan)},
					{Type: "button", Text: plainText("変更する"), ActionID: ActionEditText, Value: strconv.Itoa(scan)},
				},
			},
		},
	}
}

// EditFormMessage monta o formulário preenchido com o registro atual.
func EditFormMessage(record models.ScanRecord, scan int) models.OutboundMessage {
	blocks := []models.Block{
		{Type: "section", Text: &models.TextObject{Type: "mrkdwn", Text: MsgEditPrompt}},
	}
	for _, f := range editFields {
		blocks = append(blocks, models.Block{
			Type:     "input",
			BlockID:  "edit_" + f,
			Label:    plainText(FieldLabel(f)),
			Optional: true,
			Element: &models.Element{
				Type:         "plain_text_input",
				ActionID:     f,
				InitialValue: record[f],
			},
		})
	}
	blocks = append(blocks, models.Block{
		Type: "actions",
		Elements: []models.Element{
			{Type: "button", Text: plainText("変更を保存"), Style: "primary", ActionID: ActionSaveChanges, Value: strconv.Itoa(scan)},
		},
	})
	return models.OutboundMessage{Text: MsgEditFallback, Blocks: blocks}
}

// ChangesMessage lista os campos alterados, na ordem do formulário.
func ChangesMessage(changes map[string]string) models.OutboundMessage {
	var lines []string
	for _, f := range models.ScanFields {
		if v, ok := changes[f]; ok {
			lines = append(lines, fmt.Sprintf("%s: %s", FieldLabel(f), v))
		}
	}
	return TextMessage(MsgChangesSaved + strings.Join(lines, "\n"))
}

// EmailBody é o corpo usado nos dois links de rascunho.
func EmailBody(record models.ScanRecord) (subject, body string) {
	name := record.DisplayName()
	subject = fmt.Sprintf("%sさんの名刺情報", name)
	body = fmt.Sprintf("こんにちは、%sさん。\n", name) +
		fmt.Sprintf("会社名: %s\n", record[models.FieldCompany]) +
		fmt.Sprintf("郵便番号: %s\n", record[models.FieldPostalCode]) +
		fmt.Sprintf("会社住所: %s\n", record[models.FieldAddress]) +
		fmt.Sprintf("Email: %s\n", record[models.FieldEmail]) +
		fmt.Sprintf("ウェブサイト: %s\n", record[models.FieldWebsite]) +
		fmt.Sprintf("電話番号: %s", record[models.FieldPhone])
	return subject, body
}

func EmailLinksMessage(mobileURL, pcURL string) models.OutboundMessage {
	return models.OutboundMessage{
		Text: "Gmail作成リンク: " + pcURL,
		Blocks: []models.Block{
			{Type: "section", Text: &models.TextObject{Type: "mrkdwn", Text: MsgEmailLinksHeading}},
			{Type: "actions", Elements: []models.Element{
				{Type: "button", Style: "primary", Text: plainText("メールを作成(モバイル)"), URL: mobileURL, ActionID: "open_mailto"},
			}},
			{Type: "actions", Elements: []models.Element{
				{Type: "button", Style: "primary", Text: plainText("メールを作成(PC)"), URL: pcURL, ActionID: "open_gmail"},
			}},
		},
	}
}
