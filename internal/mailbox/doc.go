// Package mailbox provides read access to the user's email via the Gmail API.
//
// It is deliberately a thin connector: it enumerates and reads messages
// and converts them into the Message shape the triage pipeline consumes
// (opaque id, subject, sender, recipient, body, received date). Nothing
// here classifies or mutates mail.
//
// The client supports multi-account authentication using the Google
// OAuth2 flow from the google package. Tokens are loaded from the file
// system (~/.cache/mailtriage/).
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := mailbox.NewClient(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	messages, err := client.ListMessages("in:inbox is:unread", 25)
//	if err != nil {
//	    log.Fatal(err)
//	}
package mailbox
