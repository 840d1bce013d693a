package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"parking-sign-backend/internal/model"
	"parking-sign-backend/internal/rules"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body pushed to subscribers.
type Payload struct {
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	SpotID    string  `json:"spotId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WorkerPool tells area subscribers about newly stored spots.
type WorkerPool struct {
	size    int
	jobs    chan model.ParkingSpot
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool with a job queue of queueSize.
func NewWorkerPool(size, queueSize int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.ParkingSpot, queueSize),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case spot := <-wp.jobs:
			wp.notifySubscribers(ctx, spot)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a spot for notification. It never blocks; when the queue
// is full the spot is dropped.
func (wp *WorkerPool) Dispatch(spot model.ParkingSpot) {
	select {
	case wp.jobs <- spot:
	default:
		log.Printf("Notification queue full, dropping spot %s", spot.ID)
	}
}

// notifySubscribers pushes the spot to every subscription whose area holds
// it and whose filter, if any, it satisfies.
func (wp *WorkerPool) notifySubscribers(ctx context.Context, spot model.ParkingSpot) {
	var subscriptions []model.AreaSubscription
	err := wp.db.WithContext(ctx).
		Where("south <= ? AND north >= ?", spot.Latitude, spot.Latitude).
		Where("(west <= east AND west <= ? AND east >= ?) OR (west > east AND (west <= ? OR east >= ?))",
			spot.Longitude, spot.Longitude, spot.Longitude, spot.Longitude).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for spot %s: %v", spot.ID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(newPayload(spot))
	if err != nil {
		log.Printf("Error encoding notification for spot %s: %v", spot.ID, err)
		return
	}

	periods := spot.Rules()
	sent := 0
	for _, sub := range subscriptions {
		f, err := rules.ParseFilter(sub.Filter)
		if err != nil {
			log.Printf("Subscription %s has unusable filter %q: %v", sub.Endpoint, sub.Filter, err)
			continue
		}
		if !f.Matches(spot.Description, periods) {
			continue
		}
		wp.sendNotification(ctx, sub, payload)
		sent++
	}
	log.Printf("Sent %d notifications for spot %s", sent, spot.ID)
}

func newPayload(spot model.ParkingSpot) Payload {
	body := "A parking sign was added in your area."
	if spot.Description != nil && *spot.Description != "" {
		body = *spot.Description
	}
	return Payload{
		Title:     "New parking sign nearby",
		Body:      body,
		SpotID:    spot.ID,
		Latitude:  spot.Latitude,
		Longitude: spot.Longitude,
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.AreaSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
