package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/docscan/internal/errors"
)

var statusByCode = map[string]int{
	apperrors.ErrBadRequest.Code:      fiber.StatusBadRequest,
	apperrors.ErrEmptyBatch.Code:      fiber.StatusBadRequest,
	apperrors.ErrNothingToExport.Code: fiber.StatusBadRequest,
	apperrors.ErrInvalidNumber.Code:   fiber.StatusBadRequest,
	apperrors.ErrOCRUnsupported.Code:  fiber.StatusUnsupportedMediaType,
	apperrors.ErrUnauthorized.Code:    fiber.StatusUnauthorized,
	apperrors.ErrNotFound.Code:        fiber.StatusNotFound,
	apperrors.ErrBatchNotFound.Code:   fiber.StatusNotFound,
	apperrors.ErrOCRUnavailable.Code:  fiber.StatusServiceUnavailable,
	apperrors.ErrOCRTimeout.Code:      fiber.StatusGatewayTimeout,
}

// statusFor maps an error to its HTTP status
func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	if status, ok := statusByCode[apperrors.GetCode(err)]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// errorHandler renders every error as {"error": ..., "code": ...}
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := statusFor(err)
		code := apperrors.GetCode(err)
		msg := err.Error()

		var appErr *apperrors.AppError
		var fe *fiber.Error
		switch {
		case errors.As(err, &appErr):
			msg = appErr.Message
			if appErr.Cause != nil && status < fiber.StatusInternalServerError {
				msg += ": " + appErr.Cause.Error()
			}
		case errors.As(err, &fe):
			msg = fe.Message
			code = apperrors.ErrBadRequest.Code
			if fe.Code == fiber.StatusNotFound {
				code = apperrors.ErrNotFound.Code
			}
		default:
			msg = apperrors.ErrInternal.Message
			code = apperrors.ErrInternal.Code
		}
		if status >= fiber.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("path", c.Path()),
				zap.String("code", code),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(fiber.Map{"error": msg, "code": code})
	}
}

func badRequest(msg string) error {
	return apperrors.New(apperrors.ErrBadRequest.Code, msg)
}
