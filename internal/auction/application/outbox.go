package application

import (
	"github.com/bidworks/auctiond/internal/auction/domain"
)

// EventDispatcher is the outbound port for notification/email fan-out. The
// implementation must be asynchronous and best-effort: a dispatch problem is
// never allowed to fail or block the business operation that produced the
// event.
type EventDispatcher interface {
	DispatchNotification(event domain.NotificationEvent)
	DispatchEmail(event domain.EmailEvent)
}

// BidBroadcaster pushes accepted bids to the live watchers of an auction.
type BidBroadcaster interface {
	BroadcastBid(event domain.BidEvent)
}

// Outbox collects the events produced during a unit of work. Nothing leaves
// the outbox until Flush, and Flush is only called after the transaction
// commit succeeded, so consumers can never observe an event whose underlying
// write rolled back.
type Outbox struct {
	notifications []domain.NotificationEvent
	emails        []domain.EmailEvent
	bidEvents     []domain.BidEvent
}

func (o *Outbox) AddNotification(event domain.NotificationEvent) {
	o.notifications = append(o.notifications, event)
}

func (o *Outbox) AddEmail(event domain.EmailEvent) {
	o.emails = append(o.emails, event)
}

func (o *Outbox) AddBidEvent(event domain.BidEvent) {
	o.bidEvents = append(o.bidEvents, event)
}

// Flush hands every collected event to the dispatcher and broadcaster.
// Nil collaborators are skipped, which keeps read-only callers simple.
func (o *Outbox) Flush(dispatcher EventDispatcher, broadcaster BidBroadcaster) {
	if dispatcher != nil {
		for _, n := range o.notifications {
			dispatcher.DispatchNotification(n)
		}
		for _, e := range o.emails {
			dispatcher.DispatchEmail(e)
		}
	}
	if broadcaster != nil {
		for _, b := range o.bidEvents {
			broadcaster.BroadcastBid(b)
		}
	}
	o.notifications = nil
	o.emails = nil
	o.bidEvents = nil
}
