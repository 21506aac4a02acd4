package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/honeynil/UdhaarLedger/internal/infrastructure/auth"
	"github.com/honeynil/UdhaarLedger/internal/models"
	"github.com/honeynil/UdhaarLedger/internal/realtime"
	service "github.com/honeynil/UdhaarLedger/internal/services"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"github.com/shopspring/decimal"
)

type Handler struct {
	auth    *service.AuthService
	catalog *service.CatalogService
	orders  *service.OrderService
	ledger  *service.LedgerService
	hub     *realtime.Hub
}

func NewHandler(
	authService *service.AuthService,
	catalog *service.CatalogService,
	orders *service.OrderService,
	ledger *service.LedgerService,
	hub *realtime.Hub,
) *Handler {
	return &Handler{
		auth:    authService,
		catalog: catalog,
		orders:  orders,
		ledger:  ledger,
		hub:     hub,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrConflict), errors.Is(err, pkgerrors.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, pkgerrors.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal server error"
	}
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return pkgerrors.Validationf("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.Validationf("invalid %s", name)
	}
	return id, nil
}

func claims(r *http.Request) (*auth.Claims, error) {
	c, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return nil, pkgerrors.ErrInvalidToken
	}
	return c, nil
}

// ownShop resolves the caller's shop, rejecting a shop id that belongs to
// someone else. Zero means "my shop".
func ownShop(c *auth.Claims, shopID int64) (int64, error) {
	if shopID == 0 {
		shopID = c.ShopID
	}
	if !c.IsShopOwner(shopID) {
		return 0, pkgerrors.ErrNotShopOwner
	}
	return shopID, nil
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/profile", h.UpdateProfile).Methods(http.MethodPut)
	r.HandleFunc("/shops", h.ListShops).Methods(http.MethodGet)
	r.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", h.AddProduct).Methods(http.MethodPost)
	r.HandleFunc("/orders", h.PlaceOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}/status", h.SetOrderStatus).Methods(http.MethodPut)
	r.HandleFunc("/shops/{id}/orders", h.ListShopOrders).Methods(http.MethodGet)
	r.HandleFunc("/shops/{id}/balances", h.ShopBalances).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id}/snapshot", h.CustomerSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/payments", h.RecordPayment).Methods(http.MethodPost)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	profile, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, profile)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	profile, token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": profile})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.Logout(r.Context(), c.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if id != c.UserID {
		h.writeError(w, r, fmt.Errorf("%w: cannot edit another user's profile", pkgerrors.ErrForbidden))
		return
	}

	var update models.ProfileUpdate
	if err := decode(r, &update); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.auth.UpdateProfile(r.Context(), id, update)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.catalog.ListShops(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, shops)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	shopID, err := strconv.ParseInt(r.URL.Query().Get("shop_id"), 10, 64)
	if err != nil || shopID <= 0 {
		h.writeError(w, r, pkgerrors.Validationf("shop_id query parameter is required"))
		return
	}
	products, err := h.catalog.ListProducts(r.Context(), shopID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var product models.Product
	if err := decode(r, &product); err != nil {
		h.writeError(w, r, err)
		return
	}
	if product.ShopID, err = ownShop(c, product.ShopID); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.AddProduct(r.Context(), &product); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, product)
}

// placeOrderRequest has no total; the server always computes it.
type placeOrderRequest struct {
	ShopID int64             `json:"shop_id"`
	Items  []models.LineItem `json:"items"`
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if c.Role != models.RoleCustomer {
		h.writeError(w, r, pkgerrors.ErrNotCustomer)
		return
	}
	var req placeOrderRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), c.UserID, req.ShopID, req.Items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !c.IsShopOwner(order.ShopID) {
		h.writeError(w, r, pkgerrors.ErrNotShopOwner)
		return
	}

	updated, err := h.orders.SetStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) ListShopOrders(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.ownedShopFromPath(w, r)
	if !ok {
		return
	}
	orders, err := h.orders.ListShopOrders(r.Context(), shopID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) ShopBalances(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.ownedShopFromPath(w, r)
	if !ok {
		return
	}
	balances, err := h.ledger.ShopCustomerBalances(r.Context(), shopID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, balances)
}

func (h *Handler) ownedShopFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	c, err := claims(r)
	if err != nil {
		h.writeError(w, r, err)
		return 0, false
	}
	shopID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return 0, false
	}
	if !c.IsShopOwner(shopID) {
		h.writeError(w, r, pkgerrors.ErrNotShopOwner)
		return 0, false
	}
	return shopID, true
}

func (h *Handler) CustomerSnapshot(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	customerID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if customerID != c.UserID {
		h.writeError(w, r, fmt.Errorf("%w: cannot view another customer's ledger", pkgerrors.ErrForbidden))
		return
	}

	snapshot, err := h.ledger.GetCustomerSnapshot(r.Context(), customerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		CustomerID int64           `json:"customer_id"`
		ShopID     int64           `json:"shop_id"`
		Amount     decimal.Decimal `json:"amount"`
		Note       string          `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	shopID, err := ownShop(c, req.ShopID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tx, err := h.ledger.RecordPayment(r.Context(), req.CustomerID, shopID, req.Amount, req.Note)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// ServeWS upgrades an authenticated request into a realtime session. Only
// a shop's owner may join its channel.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	realtime.ServeWS(h.hub, func(shopID int64) error {
		if !c.IsShopOwner(shopID) {
			return pkgerrors.ErrNotShopOwner
		}
		return nil
	}, w, r)
}
