package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/shelflife/internal/audit/domain"
	"github.com/smallbiznis/shelflife/internal/authorization"
	batchdomain "github.com/smallbiznis/shelflife/internal/batch/domain"
	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
	dailycheckdomain "github.com/smallbiznis/shelflife/internal/dailycheck/domain"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	notificationdomain "github.com/smallbiznis/shelflife/internal/notification/domain"
	storedomain "github.com/smallbiznis/shelflife/internal/store/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

// errorResponse keeps the message under "error" as a plain string; mobile
// clients read nothing else.
type errorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details []ValidationError `json:"details,omitempty"`
}

var (
	ErrForbidden       = errors.New("forbidden")
	ErrInternal        = errors.New("internal_error")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrPayloadTooLarge = errors.New("payload_too_large")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{
			Error: "internal server error",
			Code:  "internal_error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		message := "validation error"
		if len(vErr.Errors) > 0 && vErr.Errors[0].Message != "" {
			message = vErr.Errors[0].Message
		}
		return http.StatusBadRequest, errorResponse{
			Error:   message,
			Code:    "validation_error",
			Details: vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorResponse{
			Error: validationErrorMessage(code),
			Code:  code,
			Details: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorResponse{
			Error: "this device is not allowed to do that",
			Code:  "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorResponse{
			Error: notFoundMessage(err),
			Code:  "not_found",
		}
	case errors.Is(err, storedomain.ErrAlreadyMember):
		return http.StatusBadRequest, errorResponse{
			Error: "device is already a member of this store",
			Code:  storedomain.ErrAlreadyMember.Error(),
		}
	case isInvalidStateError(err):
		return http.StatusBadRequest, errorResponse{
			Error: invalidStateMessage(err),
			Code:  err.Error(),
		}
	case errors.Is(err, storedomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{
			Error: "too many join attempts, try again later",
			Code:  "rate_limited",
		}
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, errorResponse{
			Error: "file too large",
			Code:  "payload_too_large",
		}
	case errors.Is(err, storedomain.ErrCodeGenerationExhausted):
		return http.StatusInternalServerError, errorResponse{
			Error: "could not generate a unique store code",
			Code:  storedomain.ErrCodeGenerationExhausted.Error(),
		}
	default:
		return http.StatusInternalServerError, errorResponse{
			Error: "internal server error",
			Code:  "internal_error",
		}
	}
}

// classifyErrorForLog feeds the request logger's error_type/error_code fields.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status == http.StatusBadRequest && payload.Code == "validation_error":
		return "validation", payload.Code
	case status >= http.StatusInternalServerError:
		return "server", payload.Code
	default:
		return "client", payload.Code
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidStore),
		errors.Is(err, authorization.ErrInvalidInput):
		return true
	case isCatalogValidationError(err),
		isEntryValidationError(err),
		isBatchValidationError(err),
		isDailyCheckValidationError(err),
		isStoreValidationError(err),
		isNotificationValidationError(err),
		isActivityValidationError(err):
		return true
	default:
		return false
	}
}

func isCatalogValidationError(err error) bool {
	switch {
	case errors.Is(err, catalogdomain.ErrInvalidBarcode),
		errors.Is(err, catalogdomain.ErrInvalidName):
		return true
	default:
		return false
	}
}

func isEntryValidationError(err error) bool {
	switch {
	case errors.Is(err, entrydomain.ErrInvalidID),
		errors.Is(err, entrydomain.ErrInvalidBarcode),
		errors.Is(err, entrydomain.ErrInvalidProductName),
		errors.Is(err, entrydomain.ErrInvalidExpirationDate),
		errors.Is(err, entrydomain.ErrInvalidQuantity),
		errors.Is(err, entrydomain.ErrInvalidStoreID),
		errors.Is(err, entrydomain.ErrInvalidMemberID),
		errors.Is(err, entrydomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isBatchValidationError(err error) bool {
	switch {
	case errors.Is(err, batchdomain.ErrInvalidID),
		errors.Is(err, batchdomain.ErrInvalidDeviceID),
		errors.Is(err, batchdomain.ErrInvalidStoreID),
		errors.Is(err, batchdomain.ErrInvalidMemberID),
		errors.Is(err, batchdomain.ErrInvalidBarcode),
		errors.Is(err, batchdomain.ErrInvalidProductName),
		errors.Is(err, batchdomain.ErrInvalidExpirationDate),
		errors.Is(err, batchdomain.ErrInvalidQuantity):
		return true
	default:
		return false
	}
}

func isDailyCheckValidationError(err error) bool {
	switch {
	case errors.Is(err, dailycheckdomain.ErrInvalidID),
		errors.Is(err, dailycheckdomain.ErrInvalidStoreID),
		errors.Is(err, dailycheckdomain.ErrInvalidMemberID),
		errors.Is(err, dailycheckdomain.ErrInvalidEntryID),
		errors.Is(err, dailycheckdomain.ErrInvalidWarningDays),
		errors.Is(err, dailycheckdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isStoreValidationError(err error) bool {
	switch {
	case errors.Is(err, storedomain.ErrInvalidID),
		errors.Is(err, storedomain.ErrInvalidName),
		errors.Is(err, storedomain.ErrInvalidNickname),
		errors.Is(err, storedomain.ErrInvalidDeviceID),
		errors.Is(err, storedomain.ErrInvalidCode),
		errors.Is(err, storedomain.ErrInvalidMemberID):
		return true
	default:
		return false
	}
}

func isActivityValidationError(err error) bool {
	switch {
	case errors.Is(err, auditdomain.ErrInvalidStoreID),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidCursor):
		return true
	default:
		return false
	}
}

func isNotificationValidationError(err error) bool {
	switch {
	case errors.Is(err, notificationdomain.ErrInvalidID),
		errors.Is(err, notificationdomain.ErrInvalidDeviceID),
		errors.Is(err, notificationdomain.ErrInvalidToken),
		errors.Is(err, notificationdomain.ErrInvalidPlatform),
		errors.Is(err, notificationdomain.ErrInvalidStoreID),
		errors.Is(err, notificationdomain.ErrInvalidHour),
		errors.Is(err, notificationdomain.ErrInvalidMinute),
		errors.Is(err, notificationdomain.ErrInvalidTimezone),
		errors.Is(err, notificationdomain.ErrInvalidDaysBefore),
		errors.Is(err, notificationdomain.ErrInvalidWeekdays):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, entrydomain.ErrNotFound),
		errors.Is(err, batchdomain.ErrNotFound),
		errors.Is(err, dailycheckdomain.ErrNotFound),
		errors.Is(err, storedomain.ErrNotFound),
		errors.Is(err, storedomain.ErrMemberNotFound),
		errors.Is(err, notificationdomain.ErrNotFound),
		errors.Is(err, notificationdomain.ErrTokenNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isInvalidStateError(err error) bool {
	switch {
	case errors.Is(err, batchdomain.ErrInvalidState),
		errors.Is(err, dailycheckdomain.ErrInvalidState),
		errors.Is(err, dailycheckdomain.ErrEntryNotInWorklist),
		errors.Is(err, dailycheckdomain.ErrAlreadyProcessed),
		errors.Is(err, storedomain.ErrOwnerMustDelete),
		errors.Is(err, storedomain.ErrInvalidTransfer):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, catalogdomain.ErrNotFound):
		return "product not found"
	case errors.Is(err, entrydomain.ErrNotFound):
		return "entry not found"
	case errors.Is(err, batchdomain.ErrNotFound):
		return "batch not found"
	case errors.Is(err, dailycheckdomain.ErrNotFound):
		return "daily check not found"
	case errors.Is(err, storedomain.ErrNotFound):
		return "store not found"
	case errors.Is(err, storedomain.ErrMemberNotFound):
		return "not a member of this store"
	case errors.Is(err, notificationdomain.ErrNotFound):
		return "schedule not found"
	case errors.Is(err, notificationdomain.ErrTokenNotFound):
		return "push token not found"
	default:
		return "not found"
	}
}

func invalidStateMessage(err error) string {
	switch {
	case errors.Is(err, batchdomain.ErrInvalidState):
		return "batch is already completed"
	case errors.Is(err, dailycheckdomain.ErrInvalidState):
		return "daily check is already completed"
	case errors.Is(err, dailycheckdomain.ErrEntryNotInWorklist):
		return "entry is not part of this daily check"
	case errors.Is(err, dailycheckdomain.ErrAlreadyProcessed):
		return "entry was already processed"
	case errors.Is(err, storedomain.ErrOwnerMustDelete):
		return "owner cannot leave while other members remain; transfer ownership or delete the store"
	case errors.Is(err, storedomain.ErrInvalidTransfer):
		return "ownership can only move to another member of the store"
	default:
		return "operation not allowed in the current state"
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case dailycheckdomain.ErrInvalidWarningDays.Error():
		return "warningDays must be between 1 and 30"
	case notificationdomain.ErrInvalidDaysBefore.Error():
		return "daysBefore must be between 1 and 30"
	case notificationdomain.ErrInvalidHour.Error():
		return "hour must be between 0 and 23"
	case notificationdomain.ErrInvalidMinute.Error():
		return "minute must be between 0 and 59"
	case entrydomain.ErrInvalidExpirationDate.Error():
		return "expirationDate must be a YYYY-MM-DD date"
	case entrydomain.ErrInvalidQuantity.Error():
		return "quantity must be a positive integer"
	}
	if field := validationErrorField(code); field != "" {
		return strings.ReplaceAll(field, "_", " ") + " is invalid"
	}
	return "invalid value"
}
