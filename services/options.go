package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	config "github.com/anjiri1684/agency_messaging/configs"
	"github.com/anjiri1684/agency_messaging/events"
	"github.com/anjiri1684/agency_messaging/models"
	"gorm.io/gorm"
)

type Options struct {
	MaxContentLength   int
	DeletedPlaceholder string
	DefaultPageSize    int
	MaxPageSize        int
	MessagePageSize    int
}

func OptionsFrom(cfg config.MessagingConfig) Options {
	return Options{
		MaxContentLength:   cfg.MaxContentLength,
		DeletedPlaceholder: cfg.DeletedPlaceholder,
		DefaultPageSize:    cfg.DefaultPageSize,
		MaxPageSize:        cfg.MaxPageSize,
		MessagePageSize:    cfg.MessagePageSize,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxContentLength <= 0 {
		o.MaxContentLength = 2000
	}
	if o.DeletedPlaceholder == "" {
		o.DeletedPlaceholder = models.DefaultDeletedPlaceholder
	}
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = 20
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = 100
	}
	if o.MessagePageSize <= 0 {
		o.MessagePageSize = 50
	}
	return o
}

// Deps are the collaborators shared by the messaging services.
type Deps struct {
	DB        *gorm.DB
	Options   Options
	Publisher events.Publisher
	// Now stamps messages and conversations. Defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	d.Options = d.Options.withDefaults()
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) publish(ctx context.Context, event events.Event) {
	if err := d.Publisher.Publish(ctx, event); err != nil {
		log.Printf("⚠️ Failed to publish %s for conversation %s: %v", event.Type, event.ConversationID, err)
	}
}

// storageError classifies a gorm failure into the messaging error taxonomy.
func storageError(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrTransientIO, err)
}

func validateParticipants(a, b string) error {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" || a == b {
		return models.ErrInvalidParticipants
	}
	return nil
}

// normalizeContent trims the text and enforces 1..max characters.
func normalizeContent(content string, max int) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("%w: content is empty", models.ErrInvalidContent)
	}
	if n := utf8.RuneCountInString(trimmed); n > max {
		return "", fmt.Errorf("%w: %d characters exceeds the limit of %d", models.ErrInvalidContent, n, max)
	}
	return trimmed, nil
}

func pageBounds(page, pageSize, defaultSize, maxSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return (page - 1) * pageSize, pageSize
}
