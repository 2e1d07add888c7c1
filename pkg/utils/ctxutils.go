package utils

import (
	"context"

	"lab-workflow/pkg/contextkeys"
	apperrors "lab-workflow/pkg/errors"
)

// GetActorRoleFromCtx - роль, положенная в контекст AuthMiddleware.
func GetActorRoleFromCtx(ctx context.Context) (string, error) {
	role, ok := ctx.Value(contextkeys.ActorRoleKey).(string)
	if !ok || role == "" {
		return "", apperrors.ErrUnauthorized
	}
	return role, nil
}

// GetUserIDFromCtx - subject токена; может отсутствовать.
func GetUserIDFromCtx(ctx context.Context) string {
	userID, _ := ctx.Value(contextkeys.UserIDKey).(string)
	return userID
}

func WithActor(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, userID)
	return context.WithValue(ctx, contextkeys.ActorRoleKey, role)
}
