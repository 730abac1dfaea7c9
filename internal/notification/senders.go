package notification

import (
	"context"
	"fmt"

	"github.com/example/unique-shop/internal/email"
)

// Publisher is the slice of the Kafka producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// KafkaSender forwards messages to the notification topic, keyed by order
// number so one order's messages stay ordered.
type KafkaSender struct {
	publisher Publisher
}

func NewKafkaSender(p Publisher) *KafkaSender {
	return &KafkaSender{publisher: p}
}

func (k *KafkaSender) Send(ctx context.Context, msg Message) error {
	if err := k.publisher.Publish(ctx, msg.Order.Number, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Mailer is implemented by email.Service.
type Mailer interface {
	Send(to, subject, body string) error
}

// EmailSender renders a message with the email templates and mails it.
type EmailSender struct {
	mailer Mailer
}

func NewEmailSender(m Mailer) *EmailSender {
	return &EmailSender{mailer: m}
}

func (e *EmailSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := email.Render(string(msg.Template), summary(msg.Order))
	if err != nil {
		return err
	}
	return e.mailer.Send(msg.Recipient, subject, body)
}

func summary(oc OrderContext) email.Summary {
	s := email.Summary{
		Number:         oc.Number,
		CustomerName:   oc.CustomerName,
		Email:          oc.Email,
		Phone:          oc.Phone,
		Address:        oc.Address,
		Currency:       oc.Currency,
		Total:          oc.Total,
		StatusURL:      oc.StatusURL,
		ReceiptURL:     oc.ReceiptURL,
		Carrier:        oc.Carrier,
		TrackingNumber: oc.TrackingNumber,
	}
	for _, l := range oc.Items {
		s.Items = append(s.Items, email.SummaryLine{Title: l.Title, Price: l.Price})
	}
	return s
}
