package guerrillamail

import "github.com/guerrillamail/client-go/internal/api"

// Message is one entry of an inbox listing: the summary the service shows
// before a message is opened.
type Message = api.Message

// EmailDetails is the full content of a message, including its HTML body
// and attachment descriptors. Text and Links derive plain text and anchor
// targets from the body.
type EmailDetails = api.EmailDetails

// Attachment describes one attachment of a fetched message. Its content is
// not downloaded.
type Attachment = api.Attachment

// Alias returns the local part of an address: everything before the first
// "@", or the whole string when there is none. The service identifies a
// mailbox by its alias alone.
func Alias(address string) string {
	return api.Alias(address)
}
