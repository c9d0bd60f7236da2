package queue

import (
	"encoding/json"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Subscription is a live feed of insert events for one conversation.
// Events arrive on C until Cancel is called or the connection drops; C is
// closed in both cases. Cancel is synchronous and safe to call more than
// once.
type Subscription struct {
	C    <-chan MessageInsertedEvent
	conn *amqp.Connection
	once sync.Once
	quit chan struct{}
	done chan struct{}
}

// Cancel tears the subscription down: the consumer stops, the connection
// closes and C is closed before Cancel returns. No events are delivered
// after Cancel.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.quit)
		_ = s.conn.Close() // ends the delivery range loop
		<-s.done
	})
}

// Subscribe opens a broker connection with an exclusive auto-delete queue
// bound to the conversation's routing key and starts decoding deliveries.
// Malformed payloads are logged and skipped.
func Subscribe(url, conversationID string) (*Subscription, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareExchange(ch); err != nil {
		_ = conn.Close()
		return nil, err
	}
	// server-named exclusive queue: one subscriber, dropped on disconnect
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, conversationID, ExchangeName, false, nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	events := make(chan MessageInsertedEvent)
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(events)
		for d := range deliveries {
			var ev MessageInsertedEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Printf("queue: drop malformed event: %v", err)
				continue
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	return &Subscription{C: events, conn: conn, quit: quit, done: done}, nil
}
