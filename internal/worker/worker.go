package worker

import (
	"context"
	"fmt"

	"sales-service/internal/audit"
	"sales-service/internal/broker"
	"sales-service/internal/models"
	"sales-service/internal/store"
	"sales-service/internal/util"

	"go.uber.org/zap"
)

// AuditWorker consumes sale lifecycle events and appends them to the audit
// log, so mutating requests never wait on the sink. Events carry ids and a
// processed-events check makes redelivery harmless.
type AuditWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	recorder     *audit.Recorder
	logger       *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer, st *store.Store, recorder *audit.Recorder) *AuditWorker {
	w := &AuditWorker{
		consumer: consumer,
		store:    st,
		recorder: recorder,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnSaleCreated(w.handleSaleCreated)
	eventHandler.OnSalePaid(w.handleSalePaid)
	eventHandler.OnSaleCancelled(w.handleSaleCancelled)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting audit worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	w.logger.Info("Stopping audit worker")
	return w.consumer.Close()
}

func (w *AuditWorker) record(ctx context.Context, event models.BaseEvent, action, orderID string, userID int64, details string) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	entry := models.AuditEntry{
		Action:   action,
		Entity:   "sale",
		EntityID: orderID,
		UserID:   fmt.Sprintf("%d", userID),
		Details:  details,
	}
	if err := w.recorder.Record(ctx, entry); err != nil {
		return err
	}
	util.AuditEntriesTotal.Inc()

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	return nil
}

func (w *AuditWorker) handleSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	details := fmt.Sprintf("total=%.2f %s, %d items, payment=%s",
		event.TotalAmount, event.Currency, len(event.Items), event.PaymentMethod)
	return w.record(ctx, event.BaseEvent, "create", event.OrderID, event.UserID, details)
}

func (w *AuditWorker) handleSalePaid(ctx context.Context, event *models.SalePaidEvent) error {
	return w.record(ctx, event.BaseEvent, "pay", event.OrderID, event.UserID, "payment confirmed")
}

func (w *AuditWorker) handleSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error {
	return w.record(ctx, event.BaseEvent, "cancel", event.OrderID, event.UserID, event.Reason)
}
