package notifier

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/models"
	"gorm.io/gorm"
)

const (
	queueSize     = 256
	retryInterval = time.Minute
	maxAttempts   = 5
)

// Config carries the webhook destinations. Either may be empty.
type Config struct {
	DiscordWebhook string
	SlackWebhook   string
}

// Dispatcher pushes high and critical alerts to chat webhooks and keeps
// a notification row per delivery. Failed deliveries are retried on a
// ticker until maxAttempts. Implements alerts.Notifier; enqueueing
// never blocks the request path.
type Dispatcher struct {
	db     *gorm.DB
	config Config
	client *http.Client
	queue  chan uint
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(db *gorm.DB, config Config) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		db:     db,
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
		queue:  make(chan uint, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the delivery loop.
func (d *Dispatcher) Start() {
	log.Println("Starting notification dispatcher...")

	go d.run()
}

// Stop shuts the delivery loop down.
func (d *Dispatcher) Stop() {
	log.Println("Stopping notification dispatcher...")
	d.cancel()
}

// AlertCreated queues an alert for delivery. Drops (and logs) when the
// queue is full rather than blocking alert creation.
func (d *Dispatcher) AlertCreated(alert *models.Alert) {
	select {
	case d.queue <- alert.ID:
	default:
		log.Printf("Notification queue full, dropping alert %d", alert.ID)
	}
}

func (d *Dispatcher) run() {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case alertID := <-d.queue:
			d.dispatch(alertID)
		case <-ticker.C:
			d.retryPending()
		}
	}
}

// dispatch creates pending notification rows for the alert's owner and
// attempts delivery on each configured channel.
func (d *Dispatcher) dispatch(alertID uint) {
	var alert models.Alert

	if err := d.db.Preload("Car").First(&alert, alertID).Error; err != nil {
		log.Printf("Failed to load alert %d for notification: %v", alertID, err)
		return
	}

	message := fmt.Sprintf("%s alert (%s) on %s", alert.Severity, alert.AlertType, alert.Car.Name)

	for _, channel := range d.channels() {
		notification := models.Notification{
			AlertID: alert.ID,
			UserID:  alert.Car.OwnerID,
			Channel: channel,
			Status:  "pending",
			Message: message,
		}

		if err := d.db.Create(&notification).Error; err != nil {
			log.Printf("Failed to record %s notification for alert %d: %v", channel, alert.ID, err)
			continue
		}

		d.deliver(&notification, alert)
	}
}

func (d *Dispatcher) deliver(notification *models.Notification, alert models.Alert) {
	var err error

	switch notification.Channel {
	case "discord":
		err = sendDiscordAlert(d.client, d.config.DiscordWebhook, alert, alert.Car.Name)
	case "slack":
		err = sendSlackAlert(d.client, d.config.SlackWebhook, alert, alert.Car.Name)
	default:
		err = fmt.Errorf("unknown channel %q", notification.Channel)
	}

	if err != nil {
		log.Printf("Failed to deliver %s notification %d: %v", notification.Channel, notification.ID, err)
		d.db.Model(notification).Update("status", "failed")
		return
	}

	now := time.Now()
	d.db.Model(notification).Updates(map[string]interface{}{
		"status":  "sent",
		"sent_at": now,
	})
}

// retryPending re-attempts recent failed deliveries. Rows older than
// maxAttempts retry intervals are left failed for the owner to see.
func (d *Dispatcher) retryPending() {
	cutoff := time.Now().Add(-time.Duration(maxAttempts) * retryInterval)

	var pending []models.Notification

	err := d.db.Preload("Alert").Preload("Alert.Car").
		Where("status IN ? AND created_at > ?", []string{"pending", "failed"}, cutoff).
		Limit(50).
		Find(&pending).Error

	if err != nil {
		log.Printf("Failed to load pending notifications: %v", err)
		return
	}

	for i := range pending {
		d.deliver(&pending[i], pending[i].Alert)
	}
}

func (d *Dispatcher) channels() []string {
	var channels []string

	if d.config.DiscordWebhook != "" {
		channels = append(channels, "discord")
	}

	if d.config.SlackWebhook != "" {
		channels = append(channels, "slack")
	}

	return channels
}
