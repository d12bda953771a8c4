package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/agyemangopoku/farmlink-backend/api/responses"
	"github.com/agyemangopoku/farmlink-backend/api/validators"
	"github.com/agyemangopoku/farmlink-backend/internal/fulfillment"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	pkgerrors "github.com/agyemangopoku/farmlink-backend/pkg/errors"
	"github.com/agyemangopoku/farmlink-backend/pkg/logger"
	"github.com/agyemangopoku/farmlink-backend/pkg/pagination"
)

// AuditTrail returns the newest-first audit page for one aggregate.
func AuditTrail(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		aggregateType := enums.AggregateType(strings.TrimSpace(r.URL.Query().Get("aggregate_type")))
		if !aggregateType.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown aggregate type"))
			return
		}
		rawID := strings.TrimSpace(r.URL.Query().Get("aggregate_id"))
		aggregateID, err := uuid.Parse(rawID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid aggregate_id"))
			return
		}

		params, err := auditPageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, cursor, err := svc.AuditTrail(r.Context(), aggregateType, aggregateID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auditPage(entries, cursor))
	}
}

// AuditTrailForActor returns the newest-first audit page for one actor.
func AuditTrailForActor(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		actorID, err := parseUUIDParam(r, "actorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := auditPageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, cursor, err := svc.AuditTrailForActor(r.Context(), actorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auditPage(entries, cursor))
	}
}

func auditPageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func auditPage(entries any, cursor *pagination.Cursor) map[string]any {
	body := map[string]any{"entries": entries}
	if cursor != nil {
		body["cursor"] = pagination.EncodeCursor(*cursor)
	}
	return body
}
