package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

const gmailBase = "https://mail.google.com/mail/"

var validate = validator.New()

func validateRecipient(to string) error {
	if to == "" || !strings.Contains(to, "@") {
		return fmt.Errorf("%w: invalid email address %q", ErrValidation, to)
	}
	if err := validate.Var(to, "email"); err != nil {
		return fmt.Errorf("%w: invalid email address %q", ErrValidation, to)
	}
	return nil
}

// GmailComposeURL monta o link de novo rascunho no Gmail web.
func GmailComposeURL(to, subject, body string) (string, error) {
	if err := validateRecipient(to); err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("fs", "1")
	params.Set("tf", "cm")
	params.Set("to", to)
	if subject != "" {
		params.Set("su", subject)
	}
	if body != "" {
		params.Set("body", body)
	}
	return gmailBase + "?" + params.Encode(), nil
}

// MailtoURL monta um link mailto: para clientes de e-mail do celular.
func MailtoURL(to, subject, body string) (string, error) {
	if err := validateRecipient(to); err != nil {
		return "", err
	}
	query := make([]string, 0, 2)
	if subject != "" {
		query = append(query, "subject="+mailtoEscape(subject))
	}
	if body != "" {
		query = append(query, "body="+mailtoEscape(body))
	}
	u := "mailto:" + mailtoAddress(to)
	if len(query) > 0 {
		u += "?" + strings.Join(query, "&")
	}
	return u, nil
}

// mailtoAddress escapa local e domínio em separado para manter o "@".
func mailtoAddress(to string) string {
	at := strings.LastIndex(to, "@")
	return mailtoEscape(to[:at]) + "@" + mailtoEscape(to[at+1:])
}

// Espaço vira %20 em mailto (RFC 6068), não "+"
func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
