package http

import (
	"errors"
	"strings"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// MapErrorToHTTP maps an error kind to a status code and a short message.
func MapErrorToHTTP(err error) (int, string) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		if errors.Is(err, domain.ErrUserNotFound) {
			return fiber.StatusNotFound, "user not found"
		}
		return fiber.StatusNotFound, "product not found"
	case domain.KindUnauthorized:
		return fiber.StatusForbidden, "not allowed"
	case domain.KindInvalidInput:
		return fiber.StatusBadRequest, "invalid input"
	case domain.KindAuctionClosed:
		return fiber.StatusBadRequest, "auction is closed"
	case domain.KindBidTooLow:
		return fiber.StatusBadRequest, "bid too low"
	case domain.KindConflict:
		return fiber.StatusConflict, "conflicting bid, retry"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

// JSONResponse sends {"status","message","data"}.
func JSONResponse(c *fiber.Ctx, status int, data any, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends {"status","message","error"}. Internal causes are not echoed to clients.
func JSONError(c *fiber.Ctx, status int, err error, message string) error {
	detail := err.Error()
	if status >= fiber.StatusInternalServerError {
		detail = message
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"error":   detail,
	})
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Join(domain.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+" failed on "+fe.Tag())
	}
	return errors.Join(domain.ErrInvalidInput, errors.New(strings.Join(msgs, "; ")))
}
