package auth

import (
	"context"
	"errors"
)

type ctxKey int

const ctxUser ctxKey = iota

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxUser, u)
}

func UserFrom(ctx context.Context) (User, error) {
	if u, ok := ctx.Value(ctxUser).(User); ok && u.Role != "" {
		return u, nil
	}
	return User{}, errors.New("user not in context")
}

func RoleFrom(ctx context.Context) (Role, error) {
	u, err := UserFrom(ctx)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func ClientID(ctx context.Context) (string, error) {
	u, err := UserFrom(ctx)
	if err != nil {
		return "", err
	}
	if u.ClientID == "" {
		return "", errors.New("client_id not in context")
	}
	return u.ClientID, nil
}
