package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/morris-shopline/shopline-tw-lab/internal/constants"
	"github.com/morris-shopline/shopline-tw-lab/internal/logging"
	"github.com/morris-shopline/shopline-tw-lab/internal/oauthflow"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}

func query(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

func callbackParams(r *http.Request) oauthflow.CallbackParams {
	return oauthflow.CallbackParams{
		Code:             query(r, constants.QueryParamAuthorizationCode),
		State:            query(r, constants.QueryParamState),
		Error:            query(r, constants.QueryParamError),
		ErrorDescription: query(r, constants.QueryParamErrorDescription),
	}
}

// positiveInt parses an optional positive integer query parameter.
func positiveInt(r *http.Request, key string, def int) (int, bool) {
	s := query(r, key)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// upstreamDetails passes an upstream body through as JSON when it is
// JSON, and as text otherwise.
func upstreamDetails(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}

// flowErrorMessages are the error texts of one OAuth flow.
type flowErrorMessages struct {
	authorization string
	exchange      string
}

var (
	merchantErrors = flowErrorMessages{
		authorization: "OAuth authorization failed",
		exchange:      "Token exchange failed",
	}
	storefrontErrors = flowErrorMessages{
		authorization: "Storefront OAuth authorization failed",
		exchange:      "Storefront OAuth token exchange failed",
	}
)

// callbackError maps a callback failure to its status code, response and
// metric result.
func callbackError(err error, msgs flowErrorMessages) (int, errorResponse, string) {
	var upstreamErr *oauthflow.UpstreamOAuthError
	var exchangeErr *oauthflow.TokenExchangeError
	switch {
	case errors.As(err, &upstreamErr):
		details := upstreamErr.Code
		if upstreamErr.Description != "" {
			details += ": " + upstreamErr.Description
		}
		return http.StatusBadRequest, errorResponse{Error: msgs.authorization, Details: details}, "upstream_error"
	case errors.Is(err, oauthflow.ErrStateMismatch):
		return http.StatusBadRequest, errorResponse{Error: "Invalid state parameter"}, "state_mismatch"
	case errors.Is(err, oauthflow.ErrSessionNotFound):
		return http.StatusBadRequest, errorResponse{Error: "Session not found"}, "session_not_found"
	case errors.Is(err, oauthflow.ErrValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}, "validation_error"
	case errors.As(err, &exchangeErr):
		details := upstreamDetails(exchangeErr.Body)
		if details == nil {
			details = exchangeErr.Error()
		}
		return http.StatusInternalServerError, errorResponse{Error: msgs.exchange, Details: details}, "exchange_error"
	default:
		return http.StatusInternalServerError, errorResponse{Error: msgs.exchange, Details: err.Error()}, "error"
	}
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromRequest(r).WithError(err).Error("failed to write response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string, details any) {
	respondJSON(w, r, status, errorResponse{Error: msg, Details: details})
}
