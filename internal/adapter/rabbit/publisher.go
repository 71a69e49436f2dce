package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/safarigo/ridehail/internal/stream"
	"github.com/safarigo/ridehail/pkg/logger"
	wrap "github.com/safarigo/ridehail/pkg/logger/wrapper"
	"github.com/safarigo/ridehail/pkg/rabbit"
)

// Publisher mirrors every bus event onto a RabbitMQ topic exchange so
// external consumers (analytics, notifications) can follow the fleet.
type Publisher struct {
	client   *rabbit.RabbitMQ
	exchange string
	log      logger.Logger

	sub *stream.Subscription
}

func NewPublisher(client *rabbit.RabbitMQ, exchange string, log logger.Logger) *Publisher {
	return &Publisher{
		client:   client,
		exchange: exchange,
		log:      log,
	}
}

// Run declares the exchange and starts mirroring bus events until the
// context is cancelled or Stop is called.
func (p *Publisher) Run(ctx context.Context, bus *stream.Bus) error {
	if err := p.client.Channel.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return wrap.Error(wrap.WithAction(ctx, "declare_exchange"), fmt.Errorf("failed to declare exchange: %w", err))
	}

	p.sub = bus.SubscribeAll()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-p.sub.C:
				if !ok {
					return
				}
				if err := p.publish(ctx, ev); err != nil {
					p.log.Error(wrap.ErrorCtx(ctx, err), "failed to publish event", err, "type", ev.Type)
				}
			}
		}
	}()

	p.log.Info(wrap.WithAction(ctx, "rabbit_publisher_start"), "event publisher started", "exchange", p.exchange)
	return nil
}

// Stop detaches the publisher from the bus.
func (p *Publisher) Stop() {
	if p.sub != nil {
		p.sub.Close()
	}
}

func (p *Publisher) publish(ctx context.Context, ev stream.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.EnsureConnection(ctx); err != nil {
		return err
	}

	return p.client.Channel.PublishWithContext(ctx,
		p.exchange,
		routingKey(ev),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         body,
		},
	)
}

func routingKey(ev stream.Event) string {
	switch ev.Type {
	case stream.EventTripUpdated:
		return fmt.Sprintf("trip.updated.%s", ev.Trip.ID)
	case stream.EventDriverOffer:
		return fmt.Sprintf("dispatch.offer.%s", ev.Offer.DriverID)
	case stream.EventDriverLocation:
		return fmt.Sprintf("driver.location.%s", ev.Location.DriverID)
	default:
		return string(ev.Type)
	}
}
