package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"sales-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing sale lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishSaleCreated publishes SaleCreated event
func (ep *EventPublisher) PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, event.OrderID, event)
}

// PublishSalePaid publishes SalePaid event
func (ep *EventPublisher) PublishSalePaid(ctx context.Context, event *models.SalePaidEvent) error {
	return ep.producer.PublishEvent(ctx, event.OrderID, event)
}

// PublishSaleCancelled publishes SaleCancelled event
func (ep *EventPublisher) PublishSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, event.OrderID, event)
}

// EventHandler routes incoming sale events to registered callbacks
type EventHandler struct {
	onSaleCreated   func(context.Context, *models.SaleCreatedEvent) error
	onSalePaid      func(context.Context, *models.SalePaidEvent) error
	onSaleCancelled func(context.Context, *models.SaleCancelledEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnSaleCreated registers a handler for SaleCreated events
func (eh *EventHandler) OnSaleCreated(handler func(context.Context, *models.SaleCreatedEvent) error) {
	eh.onSaleCreated = handler
}

// OnSalePaid registers a handler for SalePaid events
func (eh *EventHandler) OnSalePaid(handler func(context.Context, *models.SalePaidEvent) error) {
	eh.onSalePaid = handler
}

// OnSaleCancelled registers a handler for SaleCancelled events
func (eh *EventHandler) OnSaleCancelled(handler func(context.Context, *models.SaleCancelledEvent) error) {
	eh.onSaleCancelled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeSaleCreated:
		if eh.onSaleCreated != nil {
			var event models.SaleCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleCreated event: %w", err)
			}
			return eh.onSaleCreated(ctx, &event)
		}

	case models.EventTypeSalePaid:
		if eh.onSalePaid != nil {
			var event models.SalePaidEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SalePaid event: %w", err)
			}
			return eh.onSalePaid(ctx, &event)
		}

	case models.EventTypeSaleCancelled:
		if eh.onSaleCancelled != nil {
			var event models.SaleCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleCancelled event: %w", err)
			}
			return eh.onSaleCancelled(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
