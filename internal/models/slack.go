package models

// Tipos do Events API e do Block Kit usados pelo bot.

type SlackEnvelope struct {
	Type      string      `json:"type" binding:"required"`
	Token     string      `json:"token"`
	Challenge string      `json:"challenge"`
	TeamID    string      `json:"team_id"`
	EventID   string      `json:"event_id"`
	Event     *SlackEvent `json:"event,omitempty"`
}

type SlackEvent struct {
	Type    string      `json:"type"`
	Subtype string      `json:"subtype"`
	Channel string      `json:"channel"`
	User    string      `json:"user"`
	BotID   string      `json:"bot_id"`
	Text    string      `json:"text"`
	TS      string      `json:"ts"`
	Files   []SlackFile `json:"files"`
}

// FromBot indica mensagens do próprio bot (ou de outros bots).
func (e *SlackEvent) FromBot() bool {
	return e.BotID != "" || e.Subtype == "bot_message"
}

type SlackFile struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Mimetype           string `json:"mimetype"`
	Filetype           string `json:"filetype"`
	URLPrivate         string `json:"url_private"`
	URLPrivateDownload string `json:"url_private_download"`
}

func (f SlackFile) Ref() AttachmentRef {
	url := f.URLPrivateDownload
	if url == "" {
		url = f.URLPrivate
	}
	return AttachmentRef{
		ID:       f.ID,
		URL:      url,
		MimeType: f.Mimetype,
		Name:     f.Name,
		FileType: f.Filetype,
	}
}

type SlackInteraction struct {
	Type    string          `json:"type"`
	User    SlackUser       `json:"user"`
	Channel SlackChannel    `json:"channel"`
	Actions []SlackAction   `json:"actions"`
	State   *SlackState     `json:"state,omitempty"`
	Team    SlackTeam       `json:"team"`
	Message *SlackMessageTS `json:"message,omitempty"`
}

type SlackUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type SlackChannel struct {
	ID string `json:"id"`
}

type SlackTeam struct {
	ID string `json:"id"`
}

type SlackMessageTS struct {
	TS string `json:"ts"`
}

type SlackAction struct {
	ActionID string `json:"action_id"`
	BlockID  string `json:"block_id"`
	Value    string `json:"value"`
}

type SlackState struct {
	Values map[string]map[string]SlackStateValue `json:"values"`
}

type SlackStateValue struct {
	Type  string  `json:"type"`
	Value *string `json:"value"`
}

// FormValues achata state.values em action_id -> valor.
func (s *SlackState) FormValues() map[string]string {
	values := map[string]string{}
	if s == nil {
		return values
	}
	for _, block := range s.Values {
		for actionID, v := range block {
			if v.Value != nil {
				values[actionID] = *v.Value
			} else {
				values[actionID] = ""
			}
		}
	}
	return values
}

// Block Kit

type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type Element struct {
	Type         string      `json:"type"`
	Text         *TextObject `json:"text,omitempty"`
	ActionID     string      `json:"action_id,omitempty"`
	Style        string      `json:"style,omitempty"`
	URL          string      `json:"url,omitempty"`
	Value        string      `json:"value,omitempty"`
	InitialValue string      `json:"initial_value,omitempty"`
}

type Block struct {
	Type     string      `json:"type"`
	BlockID  string      `json:"block_id,omitempty"`
	Text     *TextObject `json:"text,omitempty"`
	Label    *TextObject `json:"label,omitempty"`
	Element  *Element    `json:"element,omitempty"`
	Elements []Element   `json:"elements,omitempty"`
	Optional bool        `json:"optional,omitempty"`
}

// OutboundMessage é uma mensagem para a conversa: texto simples e blocos opcionais.
type OutboundMessage struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

type PostMessageRequest struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []Block `json:"blocks,omitempty"`
}

type SlackAPIResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	TS      string `json:"ts,omitempty"`
	Channel string `json:"channel,omitempty"`
}
