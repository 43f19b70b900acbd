package guerrillamail

import (
	"context"
)

// Inbox is a handle for one GuerrillaMail address. It holds no state of its
// own; every call goes through the Client that created it.
type Inbox struct {
	emailAddress string
	client       *Client
}

// Address returns the full email address.
func (i *Inbox) Address() string {
	return i.emailAddress
}

// Alias returns the local part of the address, which is what the service
// uses to identify the mailbox.
func (i *Inbox) Alias() string {
	return Alias(i.emailAddress)
}

// GetMessages lists the messages in the inbox.
func (i *Inbox) GetMessages(ctx context.Context) ([]Message, error) {
	return i.client.GetMessages(ctx, i.emailAddress)
}

// FetchEmail returns the full content of a message in the inbox.
func (i *Inbox) FetchEmail(ctx context.Context, id string) (*EmailDetails, error) {
	return i.client.FetchEmail(ctx, i.emailAddress, id)
}

// Delete asks the service to forget the address. See Client.DeleteEmail.
func (i *Inbox) Delete(ctx context.Context) (bool, error) {
	return i.client.DeleteEmail(ctx, i.emailAddress)
}
