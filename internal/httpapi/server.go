package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"pointstrade/internal/domain"
	"pointstrade/internal/engine"
	"pointstrade/internal/store"
	"pointstrade/internal/wallet"
)

const defaultOrderListLimit = 100

// Server serves the redemption HTTP API.
type Server struct {
	orch   *engine.Orchestrator
	orders store.OrderStore
	wallet *wallet.Client
	log    *slog.Logger
}

// NewServer creates a Server over the given orchestrator and stores.
func NewServer(orch *engine.Orchestrator, orders store.OrderStore, walletClient *wallet.Client, log *slog.Logger) *Server {
	return &Server{
		orch:   orch,
		orders: orders,
		wallet: walletClient,
		log:    log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/redemptions", s.handleSubmitRedemption)
	mux.HandleFunc("GET /api/wallet/{member_id}", s.handleGetWallet)
	mux.HandleFunc("GET /api/orders", s.handleListOrders)
	mux.HandleFunc("POST /api/broker/confirm", s.handleBrokerConfirm)
	mux.HandleFunc("GET /api/health", s.handleHealth)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleSubmitRedemption(w http.ResponseWriter, r *http.Request) {
	var req RedemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	basket := domain.Basket{
		MemberID:    req.MemberID,
		MerchantID:  req.MerchantID,
		TotalAmount: req.TotalAmount,
		PointsUsed:  req.PointsUsed,
	}
	for _, l := range req.Lines {
		basket.Lines = append(basket.Lines, domain.BasketLine{
			Symbol: l.Symbol,
			Shares: l.Shares,
			Price:  l.Price,
		})
	}

	res, err := s.orch.SubmitBasket(r.Context(), basket)
	if err != nil {
		var placeErr *engine.PlacementError
		switch {
		case errors.Is(err, engine.ErrInvalidSubmission):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &placeErr):
			writeError(w, http.StatusBadGateway,
				fmt.Sprintf("order placement failed at %s: %v", placeErr.Symbol, placeErr.Err))
		default:
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}

	resp := RedemptionResponse{
		BasketID:         res.BasketID,
		Mode:             res.Mode,
		Status:           string(res.InitialStatus),
		OrderIDs:         res.OrderIDs,
		PointsPerLine:    res.PointsPerLine,
		CashPerLine:      res.CashPerLine,
		WalletUpdated:    res.WalletUpdated,
		LedgerLogged:     res.LedgerLogged,
		MerchantNotified: res.MerchantNotified,
		BrokerNotified:   res.BrokerNotified,
		ConfirmScheduled: res.ConfirmScheduled,
	}
	if !res.NextSweepDate.IsZero() {
		resp.NextSweepDate = res.NextSweepDate.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("encoding JSON response", "error", err)
	}
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("member_id")
	if memberID == "" {
		writeError(w, http.StatusBadRequest, "member_id required")
		return
	}

	balances, err := s.wallet.FetchBalances(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, wallet.ErrUnavailable) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no wallet for %s", memberID))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read wallet")
		return
	}

	writeJSON(w, WalletResponse{
		MemberID:       balances.MemberID,
		Points:         balances.Points,
		CashBalance:    balances.CashBalance,
		PortfolioValue: balances.PortfolioValue,
	})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	basketID := r.URL.Query().Get("basket_id")
	memberID := r.URL.Query().Get("member_id")

	var (
		lines []domain.OrderLine
		err   error
	)
	switch {
	case basketID != "":
		lines, err = s.orders.GetOrderLines(r.Context(), basketID)
	case memberID != "":
		limit := defaultOrderListLimit
		if l := r.URL.Query().Get("limit"); l != "" {
			if n, perr := strconv.Atoi(l); perr == nil && n > 0 {
				limit = n
			}
		}
		lines, err = s.orders.ListOrderLinesByMember(r.Context(), memberID, limit)
	default:
		writeError(w, http.StatusBadRequest, "basket_id or member_id required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	orders := make([]OrderLineJSON, 0, len(lines))
	for _, l := range lines {
		orders = append(orders, convertOrderLine(l))
	}
	writeJSON(w, OrdersResponse{Orders: orders})
}

// handleBrokerConfirm lets the broker side push a completed stage: an
// acknowledge moves pending lines to placed, a confirm moves placed lines to
// confirmed. Re-delivery of a stage matches zero lines and is not an error.
func (s *Server) handleBrokerConfirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.BasketID == "" {
		writeError(w, http.StatusBadRequest, "basket_id required")
		return
	}

	var from, to domain.OrderStatus
	switch req.ProcessingStage {
	case domain.StageAcknowledge:
		from, to = domain.OrderStatusPending, domain.OrderStatusPlaced
	case domain.StageConfirm:
		from, to = domain.OrderStatusPlaced, domain.OrderStatusConfirmed
	default:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown processing_stage %q", req.ProcessingStage))
		return
	}

	n, err := s.orders.AdvanceBasketStatus(r.Context(), req.BasketID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to advance basket")
		return
	}
	s.log.Info("broker stage received",
		"basket_id", req.BasketID, "stage", req.ProcessingStage, "lines_updated", n)

	writeJSON(w, ConfirmResponse{
		BasketID:     req.BasketID,
		Status:       string(to),
		LinesUpdated: n,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}
