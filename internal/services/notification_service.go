package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"salon/internal/metrics"
	dbm "salon/internal/models/db_models"
)

// Notifier delivers gift card lifecycle messages. Implementations may fail;
// callers go through NotificationFanout, which never lets a failure escape.
type Notifier interface {
	NotifyPurchase(ctx context.Context, card *dbm.GiftCard, code string) error
	NotifyReceived(ctx context.Context, card *dbm.GiftCard, code string) error
	NotifyRedeemed(ctx context.Context, card *dbm.GiftCard, redeemer *dbm.Account) error
	NotifyExpired(ctx context.Context, card *dbm.GiftCard) error
	NotifyAdminServiceCard(ctx context.Context, card *dbm.GiftCard) error
}

type NotifierConfig struct {
	AppBaseURL string
	AdminEmail string
}

type mailNotifier struct {
	mail IMailService
	cfg  NotifierConfig
}

func NewMailNotifier(mail IMailService, cfg NotifierConfig) Notifier {
	return &mailNotifier{mail: mail, cfg: cfg}
}

func formatAmount(card *dbm.GiftCard) string {
	return fmt.Sprintf("%s %s", card.Amount.StringFixed(2), strings.ToUpper(card.Currency))
}

func formatDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2 January 2006")
}

func (n *mailNotifier) link(path string, query url.Values) string {
	u := strings.TrimRight(n.cfg.AppBaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func cardDetails(card *dbm.GiftCard) []EmailDetail {
	details := []EmailDetail{{Label: "Value", Value: formatAmount(card)}}
	if card.Type == dbm.GiftCardTypeService && card.ServiceName != "" {
		details = append(details, EmailDetail{Label: "Treatment", Value: card.ServiceName})
	}
	return append(details, EmailDetail{Label: "Valid until", Value: formatDate(card.ExpiresAt)})
}

// NotifyPurchase sends the purchaser a receipt. When there is no separate
// recipient the purchaser is the holder, so the receipt carries the code.
func (n *mailNotifier) NotifyPurchase(ctx context.Context, card *dbm.GiftCard, code string) error {
	if card.PurchaserEmail == "" {
		return nil
	}

	data := EmailData{
		Title:   "Thank you for your gift card purchase",
		Intro:   fmt.Sprintf("Hi %s, your payment was confirmed and your gift card is ready.", card.PurchaserName),
		Details: cardDetails(card),
	}
	if card.RecipientEmail == "" || strings.EqualFold(card.RecipientEmail, card.PurchaserEmail) {
		data.Highlight = code
		data.Details = append(data.Details, EmailDetail{Label: "Redeem", Value: "Enter the code in your account to add the value to your balance."})
	} else {
		data.Details = append(data.Details, EmailDetail{Label: "Sent to", Value: card.RecipientEmail})
	}
	return n.mail.Send(ctx, card.PurchaserEmail, data)
}

func (n *mailNotifier) NotifyReceived(ctx context.Context, card *dbm.GiftCard, code string) error {
	if card.RecipientEmail == "" {
		return nil
	}

	from := card.PurchaserName
	if from == "" {
		from = "Someone"
	}
	intro := fmt.Sprintf("%s sent you a gift card.", from)
	if card.Message != "" {
		intro += " \"" + card.Message + "\""
	}

	data := EmailData{
		Subject:   "You received a gift card",
		Title:     fmt.Sprintf("Hi %s, you have a gift!", card.RecipientName),
		Intro:     intro,
		Highlight: code,
		Details:   cardDetails(card),
	}
	if card.Type == dbm.GiftCardTypeService {
		data.ButtonTxt = "Show at the salon"
		data.ButtonURL = n.link("/gift-cards/verify", url.Values{"token": {card.VerificationToken}})
	} else {
		data.ButtonTxt = "Redeem now"
		data.ButtonURL = n.link("/gift-cards/redeem", nil)
	}
	return n.mail.Send(ctx, card.RecipientEmail, data)
}

func (n *mailNotifier) NotifyRedeemed(ctx context.Context, card *dbm.GiftCard, redeemer *dbm.Account) error {
	to := card.RecipientEmail
	if redeemer != nil && redeemer.Email != "" {
		to = redeemer.Email
	}
	if to == "" {
		to = card.PurchaserEmail
	}
	if to == "" {
		return nil
	}

	intro := "Your gift card has been redeemed and the value was added to your balance."
	if card.Type == dbm.GiftCardTypeService {
		intro = "Your gift card was used for your treatment. We hope you enjoyed your visit."
	}
	return n.mail.Send(ctx, to, EmailData{
		Title:   "Gift card redeemed",
		Intro:   intro,
		Details: cardDetails(card),
	})
}

func (n *mailNotifier) NotifyExpired(ctx context.Context, card *dbm.GiftCard) error {
	to := card.RecipientEmail
	if to == "" {
		to = card.PurchaserEmail
	}
	if to == "" {
		return nil
	}

	return n.mail.Send(ctx, to, EmailData{
		Title:   "Your gift card has expired",
		Intro:   "The gift card below reached its expiry date and can no longer be redeemed.",
		Details: cardDetails(card),
	})
}

func (n *mailNotifier) NotifyAdminServiceCard(ctx context.Context, card *dbm.GiftCard) error {
	if n.cfg.AdminEmail == "" {
		return nil
	}

	details := append(cardDetails(card),
		EmailDetail{Label: "Purchaser", Value: card.PurchaserName + " <" + card.PurchaserEmail + ">"},
		EmailDetail{Label: "Status", Value: string(card.Status)},
	)
	if card.RecipientEmail != "" {
		details = append(details, EmailDetail{Label: "Recipient", Value: card.RecipientName + " <" + card.RecipientEmail + ">"})
	}
	return n.mail.Send(ctx, n.cfg.AdminEmail, EmailData{
		Subject:   fmt.Sprintf("Service gift card %s", card.Status),
		Title:     "Service gift card update",
		Intro:     fmt.Sprintf("Service gift card %s is now %s.", card.ID, card.Status),
		Details:   details,
		ButtonTxt: "Open in admin",
		ButtonURL: n.link("/admin/gift-cards/"+card.ID.String(), nil),
	})
}

type noopNotifier struct{}

// NewNoopNotifier returns a Notifier that drops every message, used when no
// mail transport is configured.
func NewNoopNotifier() Notifier { return noopNotifier{} }

func (noopNotifier) NotifyPurchase(context.Context, *dbm.GiftCard, string) error { return nil }
func (noopNotifier) NotifyReceived(context.Context, *dbm.GiftCard, string) error { return nil }
func (noopNotifier) NotifyRedeemed(context.Context, *dbm.GiftCard, *dbm.Account) error {
	return nil
}
func (noopNotifier) NotifyExpired(context.Context, *dbm.GiftCard) error { return nil }
func (noopNotifier) NotifyAdminServiceCard(context.Context, *dbm.GiftCard) error {
	return nil
}

// NotificationFanout calls the Notifier after a state change has been
// committed. Failures are logged and counted, never returned.
type NotificationFanout struct {
	notifier Notifier
	log      *zap.Logger
	timeout  time.Duration
}

const defaultNotifyTimeout = 5 * time.Second

// NewNotificationFanout bounds every send by timeout; zero or less uses five
// seconds.
func NewNotificationFanout(notifier Notifier, log *zap.Logger, timeout time.Duration) *NotificationFanout {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &NotificationFanout{notifier: notifier, log: log, timeout: timeout}
}

func (f *NotificationFanout) deliver(ctx context.Context, kind string, card *dbm.GiftCard, fn func(ctx context.Context) error) {
	// The request may already be cancelled once the mutation committed.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationFailures.WithLabelValues(kind).Inc()
			f.log.Error("notification panicked", zap.String("kind", kind), zap.Stringer("gift_card_id", card.ID), zap.Any("panic", r))
		}
	}()

	if err := fn(ctx); err != nil {
		metrics.NotificationFailures.WithLabelValues(kind).Inc()
		f.log.Warn("notification failed", zap.String("kind", kind), zap.Stringer("gift_card_id", card.ID), zap.Error(err))
	}
}

// Purchased sends the purchase emails in parallel, so the caller waits for
// at most one timeout however many go out.
func (f *NotificationFanout) Purchased(ctx context.Context, card *dbm.GiftCard, code string) {
	var wg sync.WaitGroup
	send := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	send(func() {
		f.deliver(ctx, "purchase", card, func(ctx context.Context) error {
			return f.notifier.NotifyPurchase(ctx, card, code)
		})
	})
	if card.RecipientEmail != "" && !strings.EqualFold(card.RecipientEmail, card.PurchaserEmail) {
		send(func() {
			f.deliver(ctx, "received", card, func(ctx context.Context) error {
				return f.notifier.NotifyReceived(ctx, card, code)
			})
		})
	}
	if card.Type == dbm.GiftCardTypeService {
		send(func() { f.AdminServiceCard(ctx, card) })
	}
	wg.Wait()
}

func (f *NotificationFanout) Redeemed(ctx context.Context, card *dbm.GiftCard, redeemer *dbm.Account) {
	f.deliver(ctx, "redeemed", card, func(ctx context.Context) error {
		return f.notifier.NotifyRedeemed(ctx, card, redeemer)
	})
}

func (f *NotificationFanout) Expired(ctx context.Context, card *dbm.GiftCard) {
	f.deliver(ctx, "expired", card, func(ctx context.Context) error {
		return f.notifier.NotifyExpired(ctx, card)
	})
}

func (f *NotificationFanout) AdminServiceCard(ctx context.Context, card *dbm.GiftCard) {
	f.deliver(ctx, "admin_service_card", card, func(ctx context.Context) error {
		return f.notifier.NotifyAdminServiceCard(ctx, card)
	})
}
