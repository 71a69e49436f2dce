package stream

import (
	"testing"
	"time"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
)

func TestBus_PublishWithoutSubscribersIsNoop(t *testing.T) {
	b := NewBus()
	// Must not panic or block.
	b.PublishTripUpdated(&models.Trip{ID: "trip_a", State: types.StateCreated})
}

func TestBus_DeliversToTripSubscriber(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(TripTopic("trip_a"))
	defer sub.Close()

	b.PublishTripUpdated(&models.Trip{ID: "trip_a", State: types.StateMatching})

	select {
	case ev := <-sub.C:
		if ev.Type != EventTripUpdated {
			t.Fatalf("expected trip.updated, got %s", ev.Type)
		}
		if ev.Trip == nil || ev.Trip.ID != "trip_a" {
			t.Fatal("event must carry the trip payload")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
}

func TestBus_OfferReachesDriverAndTripTopics(t *testing.T) {
	b := NewBus()
	driverSub := b.Subscribe(DriverTopic("driver_1"))
	tripSub := b.Subscribe(TripTopic("trip_a"))
	defer driverSub.Close()
	defer tripSub.Close()

	b.PublishDriverOffer(&models.DispatchOffer{
		ID:       "offer_1",
		TripID:   "trip_a",
		DriverID: "driver_1",
		Status:   types.OfferPending,
	})

	for name, ch := range map[string]chan Event{"driver": driverSub.C, "trip": tripSub.C} {
		select {
		case ev := <-ch:
			if ev.Type != EventDriverOffer || ev.Offer == nil || ev.Offer.ID != "offer_1" {
				t.Fatalf("%s topic received wrong event: %+v", name, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s topic did not receive the offer", name)
		}
	}
}

func TestBus_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(TripTopic("trip_a"))
	defer sub.Close()

	// Fill well past the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBuffer*4; i++ {
			b.PublishTripUpdated(&models.Trip{ID: "trip_a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestBus_FirehoseSeesEveryEvent(t *testing.T) {
	b := NewBus()
	all := b.SubscribeAll()
	defer all.Close()

	b.PublishTripUpdated(&models.Trip{ID: "trip_a", State: types.StateMatching})
	b.PublishDriverOffer(&models.DispatchOffer{ID: "offer_1", TripID: "trip_a", DriverID: "driver_1"})
	b.PublishDriverLocation(DriverLocation{TripID: "trip_a", DriverID: "driver_1"})

	want := []EventType{EventTripUpdated, EventDriverOffer, EventDriverLocation}
	for _, typ := range want {
		select {
		case ev := <-all.C:
			if ev.Type != typ {
				t.Fatalf("expected %s, got %s", typ, ev.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("firehose did not receive %s", typ)
		}
	}
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(DriverTopic("driver_1"))

	sub.Close()
	sub.Close() // must not panic

	// Publishing after teardown is still a no-op.
	b.Publish(DriverTopic("driver_1"), Event{Type: EventDriverOffer})

	if _, open := <-sub.C; open {
		t.Fatal("channel must be closed after Close")
	}
}
