package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"github.com/oondels/emergency-gate-monitoring/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

type alertJob struct {
	DoorID string
	At     time.Time
}

// WorkerPool fans door-opened alerts out to every push subscription. Alerts
// are fire-and-forget: a full queue drops the job and every send failure is
// logged and swallowed.
type WorkerPool struct {
	size    int
	jobs    chan alertJob
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan alertJob, size*4),
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

// Notify queues a door-opened alert without blocking the caller. It
// satisfies the engine's Notifier contract.
func (wp *WorkerPool) Notify(doorID string, at time.Time) {
	select {
	case wp.jobs <- alertJob{DoorID: doorID, At: at}:
	default:
		log.Printf("alert queue full, dropping alert for door %s", doorID)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Alert worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			wp.sendAlertsForDoor(ctx, job)
		case <-ctx.Done():
			log.Printf("Alert worker %d shutting down", id)
			return
		}
	}
}

// sendAlertsForDoor fetches all subscriptions and pushes the alert to each.
func (wp *WorkerPool) sendAlertsForDoor(ctx context.Context, job alertJob) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("Error fetching subscriptions for door %s alert: %v", job.DoorID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	doorLabel := job.DoorID
	var door model.Door
	if err := wp.db.WithContext(ctx).Select("name").First(&door, "id = ?", job.DoorID).Error; err != nil {
		log.Printf("Error fetching door %s: %v", job.DoorID, err)
	} else if door.Name != "" {
		doorLabel = door.Name
	}

	log.Printf("Sending %d alerts for door %s", len(subscriptions), job.DoorID)
	message := fmt.Sprintf("Portão de emergência %s aberto em %s. Verifique a situação imediatamente!",
		doorLabel, job.At.Format("02/01/2006 15:04:05"))
	for _, sub := range subscriptions {
		wp.sendAlert(ctx, sub, []byte(message))
	}
}

// sendAlert pushes a single notification.
func (wp *WorkerPool) sendAlert(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending alert to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are pruned as they surface.
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
