package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/guerrillamail/client-go/internal/htmlutil"
)

// Message is one entry of a check_email listing.
type Message struct {
	ID        string
	From      string
	Subject   string
	Excerpt   string
	Timestamp time.Time
	// Date is the service's own display string, e.g. "12:04:31".
	Date string
	Read bool
}

// EmailDetails is the full message returned by fetch_email.
type EmailDetails struct {
	Message
	Recipient       string
	Body            string
	ContentType     string
	Size            int64
	AttachmentCount int
	Attachments     []Attachment
}

// Attachment describes one attachment part of a fetched message.
type Attachment struct {
	Filename    string
	ContentType string
	PartID      string
}

// Text returns the body with markup stripped and whitespace collapsed.
func (e *EmailDetails) Text() string {
	return htmlutil.Text(e.Body)
}

// Links returns the href of every anchor in the body, in document order.
func (e *EmailDetails) Links() []string {
	return htmlutil.Links(e.Body)
}

// flexString accepts a JSON string or number. The service is not consistent
// about which one it sends for ids, timestamps and flags.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) int64() int64 {
	n, _ := strconv.ParseInt(string(f), 10, 64)
	return n
}

func (f flexString) bool() bool {
	switch f {
	case "1", "true":
		return true
	}
	return false
}

// missingFieldError reports a required field absent from a response object.
type missingFieldError struct {
	field string
}

func (e *missingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.field)
}

type messageJSON struct {
	MailID        *flexString `json:"mail_id"`
	MailFrom      *string     `json:"mail_from"`
	MailSubject   *string     `json:"mail_subject"`
	MailExcerpt   string      `json:"mail_excerpt"`
	MailTimestamp flexString  `json:"mail_timestamp"`
	MailDate      string      `json:"mail_date"`
	MailRead      flexString  `json:"mail_read"`
}

func (w *messageJSON) message() (Message, error) {
	switch {
	case w.MailID == nil:
		return Message{}, &missingFieldError{field: "mail_id"}
	case w.MailFrom == nil:
		return Message{}, &missingFieldError{field: "mail_from"}
	case w.MailSubject == nil:
		return Message{}, &missingFieldError{field: "mail_subject"}
	}

	m := Message{
		ID:      string(*w.MailID),
		From:    *w.MailFrom,
		Subject: *w.MailSubject,
		Excerpt: w.MailExcerpt,
		Date:    w.MailDate,
		Read:    w.MailRead.bool(),
	}
	if ts := w.MailTimestamp.int64(); ts > 0 {
		m.Timestamp = time.Unix(ts, 0).UTC()
	}
	return m, nil
}

// UnmarshalJSON decodes a check_email list entry. mail_id, mail_from and
// mail_subject are required.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	msg, err := w.message()
	if err != nil {
		return err
	}
	*m = msg
	return nil
}

type attachmentJSON struct {
	Filename    string     `json:"f"`
	ContentType string     `json:"t"`
	PartID      flexString `json:"p"`
}

type emailDetailsJSON struct {
	messageJSON
	MailRecipient string           `json:"mail_recipient"`
	MailBody      *string          `json:"mail_body"`
	ContentType   string           `json:"content_type"`
	MailSize      flexString       `json:"mail_size"`
	Att           flexString       `json:"att"`
	Atts          []attachmentJSON `json:"atts"`
}

// UnmarshalJSON decodes a fetch_email response. In addition to the Message
// requirements, mail_body must be present.
func (e *EmailDetails) UnmarshalJSON(data []byte) error {
	var w emailDetailsJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	msg, err := w.message()
	if err != nil {
		return err
	}
	if w.MailBody == nil {
		return &missingFieldError{field: "mail_body"}
	}

	details := EmailDetails{
		Message:         msg,
		Recipient:       w.MailRecipient,
		Body:            *w.MailBody,
		ContentType:     w.ContentType,
		Size:            w.MailSize.int64(),
		AttachmentCount: int(w.Att.int64()),
	}
	for _, a := range w.Atts {
		details.Attachments = append(details.Attachments, Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			PartID:      string(a.PartID),
		})
	}
	*e = details
	return nil
}

// newParseError classifies a decode failure for the given AJAX function.
func newParseError(op string, err error) *ParseError {
	var missing *missingFieldError
	if errors.As(err, &missing) {
		return &ParseError{Op: op, Field: missing.field}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ParseError{Op: op, Field: typeErr.Field, Err: err}
	}
	return &ParseError{Op: op, Err: err}
}
