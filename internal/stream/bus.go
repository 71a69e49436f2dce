// Package stream is the in-process event fabric. Publishers fan out to
// per-trip and per-driver topics; subscribers consume over buffered
// channels. A slow subscriber drops events instead of blocking the
// publisher.
package stream

import (
	"sync"
	"time"

	"github.com/safarigo/ridehail/internal/domain/models"
)

type EventType string

const (
	EventTripUpdated    EventType = "trip.updated"
	EventDriverOffer    EventType = "driver.offer"
	EventDriverLocation EventType = "driver.location"
)

// DriverLocation is the payload of a driver.location event.
type DriverLocation struct {
	TripID    string    `json:"trip_id"`
	DriverID  string    `json:"driver_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Heading   *float64  `json:"heading"`
	Speed     *float64  `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
}

// Event is the tagged union carried on every topic. Exactly one of the
// payload fields is set, matching Type.
type Event struct {
	Type     EventType             `json:"type"`
	Trip     *models.Trip          `json:"trip,omitempty"`
	Offer    *models.DispatchOffer `json:"offer,omitempty"`
	Location *DriverLocation       `json:"location,omitempty"`
}

// TripTopic returns the topic key for a trip's event channel.
func TripTopic(tripID string) string {
	return "trip:" + tripID
}

// DriverTopic returns the topic key for a driver's event channel.
func DriverTopic(driverID string) string {
	return "driver:" + driverID
}

// firehoseTopic receives a copy of every published event. Outbound
// bridges (broker publisher, audit archiver) subscribe here.
const firehoseTopic = "firehose"

const defaultBuffer = 32

// Bus is the topic registry. The zero value is not usable; construct
// with NewBus.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription is one consumer of a topic. Events arrive on C until
// Close is called, after which C is closed. Close is idempotent.
type Subscription struct {
	C chan Event

	topic string
	bus   *Bus
	once  sync.Once
}

// Subscribe registers a consumer on the topic.
func (b *Bus) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		C:     make(chan Event, defaultBuffer),
		topic: topic,
		bus:   b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bucket, ok := b.subs[topic]
	if !ok {
		bucket = make(map[*Subscription]struct{})
		b.subs[topic] = bucket
	}
	bucket[sub] = struct{}{}

	return sub
}

// Close removes the subscription and closes its channel. Safe to call
// multiple times and after the bus has already forgotten the topic.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		if bucket, ok := s.bus.subs[s.topic]; ok {
			delete(bucket, s)
			if len(bucket) == 0 {
				delete(s.bus.subs, s.topic)
			}
		}
		s.bus.mu.Unlock()
		close(s.C)
	})
}

// Publish delivers the event to every subscriber of the topic.
// Publishing to a topic with no subscribers is a no-op. Delivery is
// non-blocking: a subscriber whose buffer is full misses the event.
func (b *Bus) Publish(topic string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[topic] {
		select {
		case sub.C <- ev:
		default:
		}
	}
}

// SubscribeAll registers a consumer that sees every event on the bus.
func (b *Bus) SubscribeAll() *Subscription {
	return b.Subscribe(firehoseTopic)
}

// PublishTripUpdated fans a trip snapshot out on the trip's topic.
func (b *Bus) PublishTripUpdated(trip *models.Trip) {
	ev := Event{Type: EventTripUpdated, Trip: trip}
	b.Publish(TripTopic(trip.ID), ev)
	b.Publish(firehoseTopic, ev)
}

// PublishDriverOffer notifies both the offered driver and any trip
// watchers.
func (b *Bus) PublishDriverOffer(offer *models.DispatchOffer) {
	ev := Event{Type: EventDriverOffer, Offer: offer}
	b.Publish(DriverTopic(offer.DriverID), ev)
	b.Publish(TripTopic(offer.TripID), ev)
	b.Publish(firehoseTopic, ev)
}

// PublishDriverLocation streams a position fix to trip watchers.
func (b *Bus) PublishDriverLocation(loc DriverLocation) {
	ev := Event{Type: EventDriverLocation, Location: &loc}
	b.Publish(TripTopic(loc.TripID), ev)
	b.Publish(firehoseTopic, ev)
}
