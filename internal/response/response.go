// Package response renders the JSON envelope shared by every endpoint and
// maps ledger errors onto HTTP statuses.
package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/victornnamdii/wallet-service/internal/ledger"
	"github.com/victornnamdii/wallet-service/internal/money"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success writes a success envelope.
func Success(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{Status: statusSuccess, Message: message, Data: data})
}

// Problem is the caller-visible form of an error.
type Problem struct {
	Status  int
	Code    string
	Message string
}

// FromError classifies err.
func FromError(err error) Problem {
	var amountErr *money.AmountError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &amountErr):
		if amountErr.Reason == money.ReasonMissing {
			return Problem{http.StatusBadRequest, "invalid_amount", "Please specify an amount"}
		}
		return Problem{http.StatusBadRequest, "invalid_amount", "Amount should be a number greater than 0 with a maximum of 2 decimal places"}
	case errors.Is(err, ledger.ErrInvalidAmount):
		return Problem{http.StatusBadRequest, "invalid_amount", "Amount should be a number greater than 0 with a maximum of 2 decimal places"}
	case errors.Is(err, ledger.ErrInvalidID):
		return Problem{http.StatusBadRequest, "invalid_id", "Invalid Wallet ID"}
	case errors.Is(err, ledger.ErrNotFound):
		return Problem{http.StatusNotFound, "not_found", "No wallet found with the specified ID"}
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return Problem{http.StatusBadRequest, "insufficient_funds", "You don't have enough funds for this operation"}
	case errors.Is(err, ledger.ErrCircularTransfer):
		return Problem{http.StatusBadRequest, "circular_transfer", "Can not perform a transfer from and to the same account"}
	case errors.Is(err, ledger.ErrMissingNarration):
		return Problem{http.StatusBadRequest, "missing_narration", "Please enter the transaction narration"}
	case errors.Is(err, ledger.ErrWalletExists):
		return Problem{http.StatusConflict, "wallet_exists", "User already has a wallet"}
	case ledger.Contended(err):
		return Problem{http.StatusServiceUnavailable, "wallet_busy", "Wallet is busy, please retry"}
	case errors.Is(err, ledger.ErrStorage):
		return Problem{http.StatusInternalServerError, "storage_failure", "Internal Server Error"}
	case errors.As(err, &fiberErr):
		return Problem{Status: fiberErr.Code, Message: fiberErr.Message}
	default:
		return Problem{http.StatusInternalServerError, "internal", "Internal Server Error"}
	}
}

// ErrorHandler renders handler errors as error envelopes. Server side
// failures are logged with the request id.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		p := FromError(err)
		if p.Status >= http.StatusInternalServerError && logger != nil {
			requestID, _ := c.Locals("X-Request-ID").(string)
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", requestID),
				slog.Any("error", err),
			)
		}
		return c.Status(p.Status).JSON(Envelope{Status: statusError, Message: p.Message, Code: p.Code})
	}
}
