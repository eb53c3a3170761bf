package utils

import (
	"context"
	"errors"

	"scl90-gate/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrRequestIDNotFound     = errors.New("requestID not found in context")
	ErrRequestIDNotString    = errors.New("requestID in context is not a string")
	ErrAdminSubjectNotFound  = errors.New("admin subject not found in context")
	ErrAdminSubjectNotString = errors.New("admin subject in context is not a string")
)

func stringValue(ctx context.Context, key interface{}, missing, wrongType error) (string, error) {
	val := ctx.Value(key)
	if val == nil {
		return "", missing
	}
	s, ok := val.(string)
	if !ok {
		return "", wrongType
	}
	return s, nil
}

// GetRequestIDFromContext retrieves the request ID from the context.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.RequestIDKey, ErrRequestIDNotFound, ErrRequestIDNotString)
}

// GetAdminSubjectFromContext retrieves the authenticated admin subject.
func GetAdminSubjectFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.AdminSubjectKey, ErrAdminSubjectNotFound, ErrAdminSubjectNotString)
}

// Context builder functions

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// WithAdminSubject marks the context as admin-authenticated
func WithAdminSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextkeys.AdminSubjectKey, subject)
}

// WithComponent adds component name to context
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, contextkeys.ComponentKey, component)
}

// WithOperation adds operation name to context
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}

// GetAdminSubjectOrDefault retrieves the admin subject or returns def
func GetAdminSubjectOrDefault(ctx context.Context, def string) string {
	if v, err := GetAdminSubjectFromContext(ctx); err == nil {
		return v
	}
	return def
}

// HasAdminSubject reports whether the request passed admin auth
func HasAdminSubject(ctx context.Context) bool {
	_, err := GetAdminSubjectFromContext(ctx)
	return err == nil
}
