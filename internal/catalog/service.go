package catalog

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/safar/store-mcp/internal/database"
	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
	"go.uber.org/zap"
)

const maxUpdateAttempts = 3

// Invalidator drops cached views derived from the catalog.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Service manages users and products: validation, uniqueness, filtered and
// sorted listing.
type Service struct {
	store      store.Store
	validate   *validator.Validate
	policy     *bluemonday.Policy
	logger     *zap.Logger
	invalidate Invalidator
	newID      func() string
}

type Option func(*Service)

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) {
		s.invalidate = inv
	}
}

// WithIDGenerator replaces uuid generation, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func NewService(st store.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		validate: models.NewValidator(),
		policy:   bluemonday.StrictPolicy(),
		logger:   logger,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clean strips markup and surrounding whitespace from free text.
func (s *Service) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

func (s *Service) cleanPtr(text *string) {
	if text != nil {
		*text = s.clean(*text)
	}
}

func (s *Service) changed(ctx context.Context) {
	if s.invalidate != nil {
		s.invalidate.Invalidate(ctx)
	}
}

func (s *Service) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return appErrors.FromValidator(err)
	}
	return nil
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return appErrors.AddValidationError(field, "is required")
	}
	return nil
}

// retryOnConflict reruns a read-merge-write cycle when the store reports a
// concurrent modification.
func retryOnConflict(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, database.ErrOptimisticLockFailed) {
			return err
		}
	}
	return err
}
