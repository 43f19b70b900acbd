// Package guerrillamail provides a Go client for GuerrillaMail, a
// disposable email service.
//
// The client drives the same AJAX endpoint the service's web page uses. New
// scrapes the landing page for the api_token, keeps the session cookies and
// then offers four operations: create an address, list its messages, fetch
// one message and forget the address.
//
// Basic usage:
//
//	client, err := guerrillamail.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Create a temporary inbox
//	inbox, err := client.CreateInbox(ctx, "my-alias")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Wait for a message
//	msg, err := inbox.WaitForMessage(ctx, guerrillamail.WithSubject("Welcome"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	details, err := inbox.FetchEmail(ctx, msg.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(details.Text())
//
// Every request is made exactly once; nothing is retried. Errors can be
// inspected with errors.Is against the package sentinels or errors.As
// against *APIError, *NetworkError, *ParseError and *TokenError.
package guerrillamail
