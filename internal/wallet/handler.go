package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/lock"
	"github.com/vaultpay/vaultpay/internal/ratelimit"
	"github.com/vaultpay/vaultpay/internal/store"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type operationRequest struct {
	WalletID      string          `json:"wallet_id"`
	OperationType string          `json:"operation_type"`
	Amount        decimal.Decimal `json:"amount"`
}

type createRequest struct {
	ClientID       string          `json:"client_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// Balances render with a fixed two-decimal scale; Decimal's own marshaler
// trims trailing zeros.
type walletResponse struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Balance  string `json:"balance"`
}

// Operation applies a deposit or withdrawal against a wallet.
func (h *Handler) Operation(c *fiber.Ctx) error {
	var req operationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	op, err := ParseOperation(req.OperationType)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	balance, err := h.service.ProcessOperation(c.UserContext(), OperationInput{
		WalletID:  req.WalletID,
		Operation: op,
		Amount:    req.Amount,
	})
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id": req.WalletID,
		"balance":   balance.StringFixed(2),
	})
}

// Balance returns the committed wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id": balance.WalletID,
		"balance":   balance.Amount.StringFixed(2),
		"timestamp": balance.AsOf,
	})
}

// Create provisions a wallet for a client.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{
		ClientID:       req.ClientID,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		if errors.Is(err, store.ErrWalletExists) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(walletResponse{
		ID:       w.ID,
		ClientID: w.ClientID,
		Balance:  w.Balance.StringFixed(2),
	})
}

// StatusError maps the operation failure taxonomy onto HTTP statuses so each
// failure kind stays distinguishable at the boundary.
func StatusError(err error) error {
	switch {
	case errors.Is(err, store.ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrUnknownOperation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ratelimit.ErrRateLimited):
		return fiber.NewError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, lock.ErrTimeout):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, store.ErrConflict):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
