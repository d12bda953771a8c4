package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agyemangopoku/farmlink-backend/api/middleware"
	"github.com/agyemangopoku/farmlink-backend/internal/fulfillment"
	pkgerrors "github.com/agyemangopoku/farmlink-backend/pkg/errors"
)

const idempotencyKeyHeader = "Idempotency-Key"

func actorFromRequest(r *http.Request) (fulfillment.Actor, error) {
	raw := middleware.ActorIDFromContext(r.Context())
	if raw == "" {
		return fulfillment.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		return fulfillment.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor id")
	}
	return fulfillment.Actor{ID: actorID, Role: middleware.RoleFromContext(r.Context())}, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
}
