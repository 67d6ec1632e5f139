package catalog

import (
	"context"

	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/models"
	"go.uber.org/zap"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// UserOperation is one step of a mixed user batch. Create is read for
// ActionCreate, Update and UserID for ActionUpdate, UserID alone for
// ActionDelete.
type UserOperation struct {
	Action string
	UserID string
	Create models.CreateUserRequest
	Update models.UpdateUserRequest
	Err    error
}

type UserOperationResult struct {
	Index   int                   `json:"index"`
	Action  string                `json:"action,omitempty"`
	UserID  string                `json:"user_id,omitempty"`
	User    *models.User          `json:"user,omitempty"`
	Deleted bool                  `json:"deleted,omitempty"`
	Error   *appErrors.Descriptor `json:"error,omitempty"`
}

// BatchUserOperations applies create, update and delete steps in order. Each
// step succeeds or fails on its own; earlier steps are never undone. If ctx
// ends mid-batch the results so far are returned with the context error.
func (s *Service) BatchUserOperations(ctx context.Context, ops []UserOperation) ([]UserOperationResult, error) {
	if len(ops) == 0 {
		return nil, appErrors.AddValidationError("operations", "must contain at least one operation")
	}

	results := make([]UserOperationResult, 0, len(ops))
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.applyUserOperation(ctx, i, op))
	}

	s.logger.Info("user batch processed", zap.Int("operations", len(results)))

	return results, nil
}

func (s *Service) applyUserOperation(ctx context.Context, index int, op UserOperation) UserOperationResult {
	result := UserOperationResult{Index: index, Action: op.Action, UserID: op.UserID}
	if op.Err != nil {
		result.Error = appErrors.Describe(op.Err)
		return result
	}

	var err error
	switch op.Action {
	case ActionCreate:
		result.User, err = s.CreateUser(ctx, op.Create)
	case ActionUpdate:
		result.User, err = s.UpdateUser(ctx, op.UserID, op.Update)
	case ActionDelete:
		err = s.DeleteUser(ctx, op.UserID)
		result.Deleted = err == nil
	default:
		err = appErrors.AddValidationError("action", "must be one of: create, update, delete")
	}

	if result.User != nil {
		result.UserID = result.User.ID
	}
	result.Error = appErrors.Describe(err)
	return result
}
