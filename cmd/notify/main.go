package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/diagnosis/consult-sessions/internal/domain"
	"github.com/diagnosis/consult-sessions/internal/platform/mailer"
	"github.com/diagnosis/consult-sessions/internal/repo/postgres"
	"github.com/diagnosis/consult-sessions/pkg/config"
	"github.com/diagnosis/consult-sessions/pkg/database"
	"github.com/diagnosis/consult-sessions/pkg/events"
	"github.com/diagnosis/consult-sessions/pkg/logger"
)

// The notify worker delivers what the core only records: it replays
// notify.send events immediately and drains due reminder rows on a
// fixed tick.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	var sender mailer.Service
	if cfg.Email.DevMode {
		sender = mailer.NewDevMailer()
	} else {
		sender = mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	notificationRepo := postgres.NewNotificationRepo(pool)

	err = eventBus.QueueSubscribe(events.NotifySend, "notify", func(msg *events.Message) {
		var ev events.NotifySendEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("Failed to decode notify event", "error", err)
			return
		}
		subject, text := renderEmail(domain.NotificationType(ev.Type), ev.SelectedDate, ev.SelectedTime)
		if _, err := sender.Send(ev.Recipient, "", subject, text, ""); err != nil {
			logger.Error("Failed to send notification email", "error", err, "booking_id", ev.BookingID)
		}
	})
	if err != nil {
		logger.Error("Failed to subscribe to notify events", "error", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Starting notify worker")
	for {
		select {
		case <-ticker.C:
			dispatchDue(ctx, notificationRepo, sender)
		case <-sigChan:
			logger.Info("Shutting down notify worker...")
			return
		}
	}
}

// dispatchDue sends every reminder whose scheduled time has passed and
// marks it sent. A failed send is left unsent and retried next tick.
func dispatchDue(ctx context.Context, repo postgres.NotificationRepo, sender mailer.Service) {
	due, err := repo.ListDue(ctx, time.Now(), 100)
	if err != nil {
		logger.Error("Failed to list due notifications", "error", err)
		return
	}

	for _, n := range due {
		subject, text := renderEmail(n.Type, n.SelectedDate.Format(domain.DateLayout), n.SelectedTime)
		if _, err := sender.Send(n.UserEmail, "", subject, text, ""); err != nil {
			logger.Error("Failed to send reminder", "error", err, "notification_id", n.ID)
			continue
		}
		if err := repo.MarkSent(ctx, n.ID, time.Now()); err != nil {
			logger.Error("Failed to mark notification sent", "error", err, "notification_id", n.ID)
		}
	}
}

func renderEmail(t domain.NotificationType, date, clock string) (subject, text string) {
	switch t {
	case domain.NotifyBookingConfirmation:
		return "Your consultation is confirmed",
			fmt.Sprintf("Your consultation session on %s at %s is confirmed. See you then!", date, clock)
	case domain.NotifyReminder24h:
		return "Consultation reminder: 24 hours to go",
			fmt.Sprintf("Your consultation session starts tomorrow, %s at %s.", date, clock)
	case domain.NotifyReminder1h:
		return "Consultation reminder: starting soon",
			fmt.Sprintf("Your consultation session starts at %s today.", clock)
	default:
		return "Consultation update",
			fmt.Sprintf("Update for your consultation session on %s at %s.", date, clock)
	}
}
