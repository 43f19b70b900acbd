// Package delivery turns repeated mailbox listings into new-message events.
//
// GuerrillaMail has no push channel, so a [Poller] lists every registered
// mailbox at a fixed interval and calls an [EventHandler] once per message
// ID it has not reported before. The first poll of a mailbox reports the
// messages already in it.
//
// # Usage
//
//	p := delivery.NewPoller(delivery.Config{Lister: apiClient})
//	p.Start(ctx, func(ctx context.Context, alias string, msg *api.Message) {
//	    // Handle new message
//	})
//	defer p.Stop()
//
//	p.Add("demo@guerrillamailblock.com")
//
// # Errors
//
// A failed list call is logged and handed to Config.OnError. The mailbox is
// polled again on the next tick; there is no backoff and no early retry.
//
// # Thread Safety
//
// Mailboxes can be added or removed while the poller is running.
package delivery
