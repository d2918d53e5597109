package service

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/repository"
	"alcyxob/coach-bot/internal/scheduler"
	"alcyxob/coach-bot/internal/storage"
	"alcyxob/coach-bot/internal/transport"
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// mediaLinkExpiry is how long the demo GIF links inside a delivered message
// stay valid.
const mediaLinkExpiry = 24 * time.Hour

// DeliveryService owns the timed sending of sessions: it registers one job
// per persisted session, reconstructs those registrations after a restart,
// and sends the expiry notifications on behalf of the subscription service.
type DeliveryService interface {
	SessionScheduler
	ExpiryNotifier

	// RestoreJobs re-registers a delivery job for every future planned
	// session. Called once at startup; registrations are not durable.
	RestoreJobs(ctx context.Context) error
}

// deliveryService implements the DeliveryService interface.
type deliveryService struct {
	sessionRepo  repository.SessionRepository
	userRepo     repository.UserRepository
	subscription SubscriptionService
	sender       transport.Sender
	sched        scheduler.Scheduler
	files        storage.FileStorage
	now          func() time.Time
}

// NewDeliveryService creates a new instance of deliveryService. files may be
// nil, in which case messages carry no demo links.
func NewDeliveryService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	subscription SubscriptionService,
	sender transport.Sender,
	sched scheduler.Scheduler,
	files storage.FileStorage,
) DeliveryService {
	return &deliveryService{
		sessionRepo:  sessionRepo,
		userRepo:     userRepo,
		subscription: subscription,
		sender:       sender,
		sched:        sched,
		files:        files,
		now:          time.Now,
	}
}

// sessionJobKey derives the scheduler key from the session identity, so a
// repeated registration for the same session replaces the earlier one.
func sessionJobKey(sessionID primitive.ObjectID) string {
	return "session_" + sessionID.Hex()
}

func (d *deliveryService) ScheduleSession(session *domain.Session) {
	sessionID := session.ID
	d.sched.ScheduleOnce(sessionJobKey(sessionID), session.PlannedAt, func(ctx context.Context) {
		d.deliver(ctx, sessionID)
	})
}

func (d *deliveryService) CancelSession(sessionID primitive.ObjectID) {
	d.sched.Cancel(sessionJobKey(sessionID))
}

func (d *deliveryService) RestoreJobs(ctx context.Context) error {
	sessions, err := d.sessionRepo.GetAllFuturePlanned(ctx, d.now())
	if err != nil {
		return fmt.Errorf("failed to load future sessions: %w", err)
	}
	for i := range sessions {
		d.ScheduleSession(&sessions[i])
	}
	log.Printf("INFO: restored %d delivery jobs", len(sessions))
	return nil
}

// deliver is the job body. The session is reloaded at fire time; the row, not
// the registration, is the source of truth.
func (d *deliveryService) deliver(ctx context.Context, sessionID primitive.ObjectID) {
	session, err := d.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("WARN: delivery job fired for missing session %s", sessionID.Hex())
			return
		}
		log.Printf("ERROR: delivery: failed to load session %s: %v", sessionID.Hex(), err)
		return
	}
	if session.Status != domain.SessionPlanned {
		log.Printf("INFO: session %s is %s, not delivering", sessionID.Hex(), session.Status)
		return
	}

	user, err := d.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		log.Printf("ERROR: delivery: failed to load user %s: %v", session.UserID.Hex(), err)
		return
	}

	// Entitlement may have lapsed between generation and fire time.
	allowed, err := d.subscription.CanReceiveSession(ctx, user)
	if err != nil {
		log.Printf("ERROR: delivery: entitlement check failed for user %s: %v", user.ID.Hex(), err)
		return
	}
	if !allowed {
		log.Printf("INFO: user %s no longer entitled, skipping session %s", user.ID.Hex(), sessionID.Hex())
		if err := d.sessionRepo.UpdateStatus(ctx, sessionID, domain.SessionSkipped); err != nil {
			log.Printf("ERROR: failed to mark session %s skipped: %v", sessionID.Hex(), err)
		}
		return
	}

	text := d.formatSessionMessage(ctx, session)
	if err := d.sender.SendMessage(ctx, user.TelegramID, text); err != nil {
		if errors.Is(err, transport.ErrBlocked) {
			log.Printf("WARN: user %s blocked the bot, session %s dropped", user.ID.Hex(), sessionID.Hex())
			if err := d.subscription.MarkUnreachable(ctx, user.ID); err != nil {
				log.Printf("ERROR: failed to mark user %s unreachable: %v", user.ID.Hex(), err)
			}
			if err := d.sessionRepo.UpdateStatus(ctx, sessionID, domain.SessionSkipped); err != nil {
				log.Printf("ERROR: failed to mark session %s skipped: %v", sessionID.Hex(), err)
			}
			return
		}
		// Transient transport failure. The row stays planned; there is no
		// in-process retry.
		log.Printf("ERROR: failed to deliver session %s: %v", sessionID.Hex(), err)
		return
	}

	if err := d.sessionRepo.UpdateStatus(ctx, sessionID, domain.SessionSent); err != nil {
		log.Printf("ERROR: failed to mark session %s sent: %v", sessionID.Hex(), err)
	}
	if err := d.subscription.RecordSessionSent(ctx, user.ID); err != nil {
		log.Printf("ERROR: failed to record trial usage for user %s: %v", user.ID.Hex(), err)
	}
	log.Printf("INFO: delivered session %s to user %s", sessionID.Hex(), user.ID.Hex())
}

// formatSessionMessage renders a session as a Telegram HTML message.
func (d *deliveryService) formatSessionMessage(ctx context.Context, session *domain.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "💪 <b>%s</b>\n", html.EscapeString(session.Focus))
	fmt.Fprintf(&b, "Week %d of your training cycle\n\n", session.CycleWeek)

	if session.WarmUp != "" {
		fmt.Fprintf(&b, "🔥 <b>Warm-up:</b> %s\n\n", html.EscapeString(session.WarmUp))
	}

	for _, ex := range session.Exercises {
		fmt.Fprintf(&b, "%d. <b>%s</b>", ex.Order, html.EscapeString(ex.Name))
		if link := d.mediaLink(ctx, ex.GifKey); link != "" {
			fmt.Fprintf(&b, " (<a href=\"%s\">demo</a>)", link)
		}
		fmt.Fprintf(&b, "\n   %d sets x %s reps\n", ex.Sets, html.EscapeString(ex.Reps))
	}

	if session.CoolDown != "" {
		fmt.Fprintf(&b, "\n🧘 <b>Cool-down:</b> %s\n", html.EscapeString(session.CoolDown))
	}

	b.WriteString("\nGood luck! Reply /done when you finish.")
	return b.String()
}

func (d *deliveryService) mediaLink(ctx context.Context, gifKey string) string {
	if d.files == nil || gifKey == "" {
		return ""
	}
	link, err := d.files.GeneratePresignedDownloadURL(ctx, gifKey, mediaLinkExpiry)
	if err != nil {
		log.Printf("WARN: failed to presign media link for key '%s': %v", gifKey, err)
		return ""
	}
	return link
}

func (d *deliveryService) NotifySubscriptionExpired(ctx context.Context, user *domain.User) error {
	text := "⏳ Your subscription has ended.\n\n" +
		"Your scheduled workouts are paused. Renew with /subscribe to keep training."
	return d.sendNotification(ctx, user, text)
}

func (d *deliveryService) NotifyTrialExpired(ctx context.Context, user *domain.User) error {
	text := "🎉 You finished your free trial week!\n\n" +
		"To keep receiving personalized workouts, activate a subscription with /subscribe."
	return d.sendNotification(ctx, user, text)
}

func (d *deliveryService) sendNotification(ctx context.Context, user *domain.User, text string) error {
	err := d.sender.SendMessage(ctx, user.TelegramID, text)
	if errors.Is(err, transport.ErrBlocked) {
		if markErr := d.subscription.MarkUnreachable(ctx, user.ID); markErr != nil {
			log.Printf("ERROR: failed to mark user %s unreachable: %v", user.ID.Hex(), markErr)
		}
	}
	return err
}
