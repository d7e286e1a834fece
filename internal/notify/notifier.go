// Package notify renders transactional email and hands it to a transport.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/univio-api/internal/domain"
	"github.com/univio-api/internal/infrastructure/smtp"
	"github.com/univio-api/internal/infrastructure/sns"
	"github.com/univio-api/internal/metrics"
	"github.com/univio-api/internal/pkg/email"
	"github.com/univio-api/internal/pkg/id"
)

// Notifier sends a templated message to one address.
type Notifier interface {
	Send(ctx context.Context, templateID, to string, data TemplateData) error
}

// Transport delivers a rendered notification.
type Transport interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// Archiver stores a copy of sent mail. Archive failures never fail a send.
type Archiver interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type ServiceDeps struct {
	Renderer  *Renderer
	Transport Transport
	Archive   Archiver // optional
	Metrics   *metrics.Collector
}

type service struct {
	renderer  *Renderer
	transport Transport
	archive   Archiver
	metrics   *metrics.Collector
	now       func() time.Time
}

func NewService(deps ServiceDeps) Notifier {
	return &service{
		renderer:  deps.Renderer,
		transport: deps.Transport,
		archive:   deps.Archive,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

func (s *service) Send(ctx context.Context, templateID, to string, data TemplateData) error {
	n, err := s.renderer.Render(templateID, to, data)
	if err != nil {
		return err
	}
	if err := s.transport.Deliver(ctx, n); err != nil {
		s.metrics.Notification(templateID, false)
		return fmt.Errorf("deliver %s: %w: %w", templateID, domain.ErrUnavailable, err)
	}
	s.metrics.Notification(templateID, true)
	s.archiveCopy(ctx, n)
	return nil
}

func (s *service) archiveCopy(ctx context.Context, n domain.Notification) {
	if s.archive == nil {
		return
	}
	// Codes are never archived.
	if domain.CarriesCode(n.TemplateID) {
		return
	}
	now := s.now().UTC()
	key := fmt.Sprintf("mail/%s/%s/%s.json", now.Format("2006/01/02"), n.TemplateID, id.NewAt(now))
	body, err := json.Marshal(n)
	if err != nil {
		slog.Warn("archive: marshal notification", "template", n.TemplateID, "err", err)
		return
	}
	if _, err := s.archive.Put(ctx, key, body, "application/json"); err != nil {
		slog.Warn("archive: store sent mail", "template", n.TemplateID, "key", key, "err", err)
		return
	}
	slog.Debug("archived sent mail", "template", n.TemplateID, "key", key)
}

// MailTransport delivers over SMTP.
type MailTransport struct {
	Mailer smtp.Mailer
}

func (t MailTransport) Deliver(ctx context.Context, n domain.Notification) error {
	return t.Mailer.SendEmail(ctx, n.To, n.Subject, n.Body)
}

// TopicTransport publishes the rendered message to an SNS topic for a
// downstream mail relay to pick up.
type TopicTransport struct {
	Publisher sns.TopicPublisher
}

func (t TopicTransport) Deliver(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return t.Publisher.Publish(ctx, n.Subject, string(payload), map[string]string{
		"template_id":      n.TemplateID,
		"recipient_domain": email.Domain(n.To),
	})
}
