package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/safar/store-mcp/internal/database"
	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
	"go.uber.org/zap"
)

type UserQuery struct {
	Filter store.UserFilter
	SortBy string
	Desc   bool
	Limit  int
}

type BatchUserResult struct {
	Index int                   `json:"index"`
	User  *models.User          `json:"user,omitempty"`
	Error *appErrors.Descriptor `json:"error,omitempty"`
}

func (s *Service) normalizeUser(req *models.CreateUserRequest) {
	req.Name = s.clean(req.Name)
	req.Email = models.NormalizeEmail(req.Email)
	req.Phone = models.NormalizePhone(req.Phone)
}

func (s *Service) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	s.normalizeUser(&req)
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:    s.newID(),
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Age:   req.Age,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, appErrors.FromStore(err, "User not found")
	}

	s.logger.Info("user created", zap.String("user_id", user.ID))
	s.changed(ctx)

	return user, nil
}

// UserItem is one entry of a user batch. Err is set when the entry could not
// be decoded; it is reported for that entry alone.
type UserItem struct {
	Request models.CreateUserRequest
	Err     error
}

// BatchCreateUsers creates each user independently and reports one outcome
// per input, in input order.
func (s *Service) BatchCreateUsers(ctx context.Context, reqs []models.CreateUserRequest) ([]BatchUserResult, error) {
	items := make([]UserItem, len(reqs))
	for i, req := range reqs {
		items[i].Request = req
	}
	return s.CreateUserItems(ctx, items)
}

func (s *Service) CreateUserItems(ctx context.Context, items []UserItem) ([]BatchUserResult, error) {
	if len(items) == 0 {
		return nil, appErrors.AddValidationError("users", "must contain at least one user")
	}

	results := make([]BatchUserResult, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if item.Err != nil {
			results = append(results, BatchUserResult{Index: i, Error: appErrors.Describe(item.Err)})
			continue
		}

		user, err := s.CreateUser(ctx, item.Request)
		results = append(results, BatchUserResult{
			Index: i,
			User:  user,
			Error: appErrors.Describe(err),
		})
	}

	return results, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := requireID("user_id", id); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, appErrors.FromStore(err, "User not found")
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, q UserQuery) ([]models.User, error) {
	if q.Filter.MinAge != nil && q.Filter.MaxAge != nil && *q.Filter.MinAge > *q.Filter.MaxAge {
		return nil, appErrors.AddValidationError("age_min", "must not exceed age_max")
	}

	less, err := userOrdering(q.SortBy)
	if err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx, q.Filter)
	if err != nil {
		return nil, appErrors.FromStore(err, "User not found")
	}

	if less != nil {
		sort.SliceStable(users, func(i, j int) bool {
			if q.Desc {
				return less(&users[j], &users[i])
			}
			return less(&users[i], &users[j])
		})
	}

	if q.Limit > 0 && len(users) > q.Limit {
		users = users[:q.Limit]
	}

	return users, nil
}

func userOrdering(field string) (func(a, b *models.User) bool, error) {
	switch strings.ToLower(field) {
	case "":
		return nil, nil
	case "name":
		return func(a, b *models.User) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }, nil
	case "email":
		return func(a, b *models.User) bool { return a.Email < b.Email }, nil
	case "age":
		return func(a, b *models.User) bool { return ageOf(a) < ageOf(b) }, nil
	case "created_at":
		return func(a, b *models.User) bool { return a.CreatedAt.Before(b.CreatedAt) }, nil
	default:
		return nil, appErrors.AddValidationError("sort_by", "must be one of: name, email, age, created_at")
	}
}

func ageOf(u *models.User) int {
	if u.Age == nil {
		return 0
	}
	return *u.Age
}

func (s *Service) UpdateUser(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error) {
	if err := requireID("user_id", id); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, id); err != nil {
		return nil, appErrors.FromStore(err, "User not found")
	}

	s.cleanPtr(req.Name)
	if req.Email != nil {
		email := models.NormalizeEmail(*req.Email)
		req.Email = &email
	}
	if req.Phone != nil {
		phone := models.NormalizePhone(*req.Phone)
		req.Phone = &phone
	}
	if req.Name != nil && *req.Name == "" {
		return nil, appErrors.AddValidationError("name", "must not be empty")
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	if req.Email != nil {
		if err := s.ensureEmailFree(ctx, *req.Email, id); err != nil {
			return nil, err
		}
	}

	var updated *models.User
	err := retryOnConflict(func() error {
		user, err := s.store.GetUser(ctx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.Email != nil {
			user.Email = *req.Email
		}
		if req.Phone != nil {
			user.Phone = *req.Phone
		}
		if req.Age != nil {
			user.Age = req.Age
		}

		if err := s.store.UpdateUser(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, appErrors.FromStore(err, "User not found")
	}

	s.logger.Info("user updated", zap.String("user_id", id), zap.Int("version", updated.Version))
	s.changed(ctx)

	return updated, nil
}

// DeleteUser removes the user document. Purchases referencing it are kept.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := requireID("user_id", id); err != nil {
		return err
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		return appErrors.FromStore(err, "User not found")
	}

	s.logger.Info("user deleted", zap.String("user_id", id))
	s.changed(ctx)

	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return appErrors.FromStore(err, "")
	}

	if existing.ID != ownerID {
		return appErrors.AddValidationError("email", "is already registered")
	}
	return nil
}
