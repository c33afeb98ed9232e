package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/link2pay/link2pay.go/db/models"
)

const subscriberBuffer = 16

// Pubsub fans invoice events out to in-process subscribers.
type Pubsub struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan models.Invoice
}

func NewPubsub() *Pubsub {
	ps := &Pubsub{}
	ps.subs = make(map[string]map[string]chan models.Invoice)
	return ps
}

// Subscribe returns a buffered channel receiving every invoice published on topic.
func (ps *Pubsub) Subscribe(topic string) (subId string, ch chan models.Invoice) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = make(map[string]chan models.Invoice)
	}
	subId = uuid.NewString()
	ch = make(chan models.Invoice, subscriberBuffer)
	ps.subs[topic][subId] = ch
	return subId, ch
}

func (ps *Pubsub) Unsubscribe(id string, topic string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		return
	}
	if ps.subs[topic][id] == nil {
		return
	}
	close(ps.subs[topic][id])
	delete(ps.subs[topic], id)
}

// Publish never blocks. A subscriber whose buffer is full misses msg; the
// number of such subscribers is returned.
func (ps *Pubsub) Publish(topic string, msg models.Invoice) (dropped int) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, ch := range ps.subs[topic] {
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	return dropped
}

func (ps *Pubsub) SubscriberCount(topic string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs[topic])
}
