package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	guerrillamail "github.com/guerrillamail/client-go"
)

// MessageOutput is the JSON form of a listing entry.
type MessageOutput struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Excerpt    string `json:"excerpt,omitempty"`
	ReceivedAt string `json:"receivedAt"`
	Read       bool   `json:"read"`
}

// DetailsOutput is the JSON form of a fetched message.
type DetailsOutput struct {
	MessageOutput
	Recipient   string             `json:"recipient,omitempty"`
	Text        string             `json:"text"`
	HTML        string             `json:"html,omitempty"`
	Links       []string           `json:"links,omitempty"`
	Attachments []AttachmentOutput `json:"attachments,omitempty"`
}

// AttachmentOutput is the JSON form of an attachment descriptor.
type AttachmentOutput struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	PartID      string `json:"partId,omitempty"`
}

func convertMessage(m guerrillamail.Message) MessageOutput {
	return MessageOutput{
		ID:         m.ID,
		From:       m.From,
		Subject:    m.Subject,
		Excerpt:    m.Excerpt,
		ReceivedAt: formatTime(m.Timestamp),
		Read:       m.Read,
	}
}

func convertMessages(messages []guerrillamail.Message) []MessageOutput {
	out := make([]MessageOutput, 0, len(messages))
	for _, m := range messages {
		out = append(out, convertMessage(m))
	}
	return out
}

func convertDetails(details []*guerrillamail.EmailDetails) []DetailsOutput {
	out := make([]DetailsOutput, 0, len(details))
	for _, d := range details {
		o := DetailsOutput{
			MessageOutput: convertMessage(d.Message),
			Recipient:     d.Recipient,
			Text:          d.Text(),
			HTML:          d.Body,
			Links:         d.Links(),
		}
		for _, att := range d.Attachments {
			o.Attachments = append(o.Attachments, AttachmentOutput{
				Filename:    att.Filename,
				ContentType: att.ContentType,
				PartID:      att.PartID,
			})
		}
		out = append(out, o)
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func renderMessages(w io.Writer, messages []guerrillamail.Message) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "From", "Subject", "Received", "Read"})
	for _, m := range messages {
		t.AppendRow(table.Row{m.ID, m.From, m.Subject, formatTime(m.Timestamp), m.Read})
	}
	t.Render()
}

func renderDetails(w io.Writer, d *guerrillamail.EmailDetails) {
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"ID", d.ID},
		{"From", d.From},
		{"To", d.Recipient},
		{"Subject", d.Subject},
		{"Received", formatTime(d.Timestamp)},
	})
	for _, att := range d.Attachments {
		t.AppendRow(table.Row{"Attachment", att.Filename})
	}
	t.Render()
	fmt.Fprintln(w, d.Text())
}
