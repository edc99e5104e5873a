package classes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrInvalidInput = errors.New("invalid input")

type Service interface {
	ListClasses(ctx context.Context, filter ListFilter) ([]ClassListing, error)
	CreateClass(ctx context.Context, req *CreateClassRequest) (*Class, error)
}

// Publisher delivers domain events. A nil Publisher disables events.
type Publisher interface {
	Publish(ctx context.Context, event interface{}) error
}

type service struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger
}

func NewService(repo Repository, publisher Publisher, logger *slog.Logger) Service {
	return &service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *service) ListClasses(ctx context.Context, filter ListFilter) ([]ClassListing, error) {
	return s.repo.List(ctx, filter)
}

// CreateClass stores the offering. An empty schedule is accepted; a missing
// one is not. Event delivery happens after commit and never fails the call.
func (s *service) CreateClass(ctx context.Context, req *CreateClassRequest) (*Class, error) {
	if req.Schedule == nil {
		return nil, fmt.Errorf("%w: schedule is required", ErrInvalidInput)
	}

	class, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.publishCreated(ctx, class, len(req.Schedule))
	return class, nil
}

func (s *service) publishCreated(ctx context.Context, class *Class, slots int) {
	if s.publisher == nil {
		return
	}

	event := ClassCreatedEvent{
		ClassID:   class.ID,
		UserID:    class.UserID,
		Subject:   stringValue(class.Subject),
		Cost:      float64Value(class.Cost),
		Slots:     slots,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish class created event", "class_id", class.ID, "error", err)
	}
}
