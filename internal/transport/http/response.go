package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quizloop-service/internal/app"
	"quizloop-service/internal/domain"
)

// envelope is the JSON body of every REST response.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: status < 300, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &body})
}

func badRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &errorBody{Code: "BAD_REQUEST", Message: message}})
}

// classify maps domain errors to an HTTP status and a stable error code.
// Unknown errors are reported without their text.
func classify(err error) (int, errorBody) {
	switch {
	case errors.Is(err, domain.ErrQuizUnavailable):
		return http.StatusNotFound, errorBody{Code: "QUIZ_UNAVAILABLE", Message: domain.ErrQuizUnavailable.Error()}
	case errors.Is(err, domain.ErrProjectNotFound):
		return http.StatusNotFound, errorBody{Code: "PROJECT_NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrVisitNotFound):
		return http.StatusNotFound, errorBody{Code: "VISIT_NOT_FOUND", Message: err.Error()}
	case domain.IsValidation(err):
		return http.StatusBadRequest, errorBody{Code: "VALIDATION_ERROR", Message: err.Error()}
	case errors.Is(err, app.ErrUnknownAction):
		return http.StatusBadRequest, errorBody{Code: "UNKNOWN_ACTION", Message: err.Error()}
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusConflict, errorBody{Code: "DUPLICATE_SUBMISSION", Message: err.Error()}
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict, errorBody{Code: "SESSION_CLOSED", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotPerfect),
		errors.Is(err, domain.ErrRetryAfterPerfect):
		return http.StatusConflict, errorBody{Code: "INVALID_TRANSITION", Message: err.Error()}
	case errors.Is(err, domain.ErrGeneratorNotConfigured):
		return http.StatusServiceUnavailable, errorBody{Code: "GENERATOR_NOT_CONFIGURED", Message: err.Error()}
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway, errorBody{Code: "GENERATION_FAILED", Message: domain.ErrGeneration.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal server error"}
	}
}
