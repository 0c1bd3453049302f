package purchase

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/store"
	"github.com/vaultpay/vaultpay/internal/wallet"
)

// Handler exposes purchase HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a purchase HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type recordRequest struct {
	WalletID     string          `json:"wallet_id"`
	Channel      string          `json:"channel"`
	StoreURL     string          `json:"store_url"`
	StoreAddress string          `json:"store_address"`
	Amount       decimal.Decimal `json:"amount"`
}

type purchaseResponse struct {
	ID           string    `json:"id"`
	WalletID     string    `json:"wallet_id"`
	Amount       string    `json:"amount"`
	Channel      string    `json:"channel"`
	StoreURL     string    `json:"store_url,omitempty"`
	StoreAddress string    `json:"store_address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Record debits a wallet and stores the purchase.
func (h *Handler) Record(c *fiber.Ctx) error {
	var req recordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	descriptor := req.StoreURL
	if req.Channel == store.ChannelOffline {
		descriptor = req.StoreAddress
	}

	record, err := h.service.Record(c.UserContext(), Input{
		WalletID:   req.WalletID,
		Channel:    req.Channel,
		Descriptor: descriptor,
		Amount:     req.Amount,
	})
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(record))
}

// ListByWallet returns a wallet's purchase history.
func (h *Handler) ListByWallet(c *fiber.Ctx) error {
	records, err := h.service.ListByWallet(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return statusError(err)
	}
	out := make([]purchaseResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toResponse(record))
	}
	return c.Status(http.StatusOK).JSON(out)
}

func toResponse(p store.Purchase) purchaseResponse {
	return purchaseResponse{
		ID:           p.ID,
		WalletID:     p.WalletID,
		Amount:       p.Amount.StringFixed(2),
		Channel:      p.Channel,
		StoreURL:     p.StoreURL,
		StoreAddress: p.StoreAddress,
		CreatedAt:    p.CreatedAt,
	}
}

func statusError(err error) error {
	switch err {
	case ErrInvalidChannel, ErrMissingDescriptor:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return wallet.StatusError(err)
	}
}
