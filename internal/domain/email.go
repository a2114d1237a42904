package domain

import (
	"encoding/json"
	"fmt"
)

// TemplateKind identifies which transactional template a message is rendered with.
type TemplateKind string

const (
	TemplateVerification  TemplateKind = "verification"
	TemplatePasswordReset TemplateKind = "password_reset"
	TemplateInvoice       TemplateKind = "invoice"
)

// EmailMessage is a provider-agnostic templated email.
// Params are the template variables (user_name, verification_code, ...).
type EmailMessage struct {
	ID       string // delivery id, assigned by the email service
	To       string
	ToName   string
	Template TemplateKind
	Params   map[string]string
}

// Invoice is the payload of an invoice email.
type Invoice struct {
	Number       FlexString `json:"number" validate:"required,singleline"`
	Amount       FlexString `json:"amount" validate:"required,singleline"`
	Date         string     `json:"date" validate:"singleline"`
	Description  string     `json:"description"`
	CustomerName string     `json:"customerName" validate:"singleline"`
}

// FlexString is a string field that also accepts a bare JSON number,
// so clients may send {"code": 482913} or {"code": "482913"}.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}
