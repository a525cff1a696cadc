// Package marketdata exposes the engine over HTTP and websockets:
// order entry, book depth, and live trade and quote streams.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/Professor833/order-matching-engine/domain/orderbook"
	"github.com/Professor833/order-matching-engine/service"
)

const quotePollInterval = 250 * time.Millisecond

type Server struct {
	log      *slog.Logger
	svc      *service.OrderService
	tradeHub *hub[publicTrade]
	quoteHub *hub[quoteView]
	upgrader websocket.Upgrader
}

type orderRequest struct {
	ID    uint64 `json:"id"`
	Side  string `json:"side"`
	Type  string `json:"type"`
	Price string `json:"price,omitempty"`
	Size  int64  `json:"size"`
}

type orderResponse struct {
	Seq    uint64        `json:"seq"`
	Status string        `json:"status"`
	Fills  []publicTrade `json:"fills,omitempty"`
}

type publicTrade struct {
	Timestamp int64  `json:"ts"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      int64  `json:"size"`
	TakerID   uint64 `json:"taker_id"`
	MakerID   uint64 `json:"maker_id"`
}

type quoteView struct {
	Bid string `json:"bid,omitempty"`
	Ask string `json:"ask,omitempty"`
}

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewServer(log *slog.Logger, svc *service.OrderService) *Server {
	s := &Server{
		log:      log,
		svc:      svc,
		tradeHub: newHub[publicTrade](),
		quoteHub: newHub[quoteView](),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	return s
}

// Start launches the fan-out loops and returns the handler to serve.
func (s *Server) Start(ctx context.Context) http.Handler {
	go s.consumeTrades(ctx)
	go s.pollQuotes(ctx)
	return s.routes()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", s.handleOrder)
	mux.HandleFunc("DELETE /orders/{id}", s.handleCancel)
	mux.HandleFunc("GET /book", s.handleDepth)
	mux.HandleFunc("GET /quote", s.handleQuote)
	mux.HandleFunc("GET /ws/trades", s.handleTradeStream)
	mux.HandleFunc("GET /ws/quotes", s.handleQuoteStream)
	return mux
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		seq    uint64
		trades []orderbook.Trade
	)
	switch strings.ToLower(req.Type) {
	case "limit", "lmt":
		price, perr := decimal.NewFromString(req.Price)
		if perr != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid price %q", req.Price))
			return
		}
		seq, trades, err = s.svc.PlaceLimit(req.ID, side, req.Size, price)
	case "market", "mkt":
		seq, trades, err = s.svc.PlaceMarket(req.ID, side, req.Size)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown order type %q", req.Type))
		return
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvalidSize) || errors.Is(err, service.ErrInvalidPrice) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	resp := orderResponse{Seq: seq, Status: "accepted"}
	for _, t := range trades {
		resp.Fills = append(resp.Fills, toPublicTrade(t))
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid order id"))
		return
	}

	seq, err := s.svc.Cancel(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, orderResponse{Seq: seq, Status: "accepted"})
}

func (s *Server) handleDepth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Depth())
}

func (s *Server) handleQuote(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toQuoteView(s.svc.Quote()))
}

func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.tradeHub.Subscribe(32)
	defer s.tradeHub.Unsubscribe(sub)

	for trade := range sub.ch {
		if err := conn.WriteJSON(outboundMessage{Type: "trade", Data: trade}); err != nil {
			return
		}
	}
}

func (s *Server) handleQuoteStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.quoteHub.Subscribe(32)
	defer s.quoteHub.Unsubscribe(sub)

	for q := range sub.ch {
		if err := conn.WriteJSON(outboundMessage{Type: "quote", Data: q}); err != nil {
			return
		}
	}
}

func (s *Server) consumeTrades(ctx context.Context) {
	feed := s.svc.TradeFeed()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-feed:
			s.tradeHub.Broadcast(toPublicTrade(t))
		}
	}
}

// pollQuotes pushes top-of-book changes to stream subscribers.
func (s *Server) pollQuotes(ctx context.Context) {
	ticker := time.NewTicker(quotePollInterval)
	defer ticker.Stop()

	var last quoteView
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q := toQuoteView(s.svc.Quote())
			if q == last {
				continue
			}
			last = q
			s.quoteHub.Broadcast(q)
		}
	}
}

func parseSide(value string) (orderbook.Side, error) {
	switch strings.ToLower(value) {
	case "buy", "bid", "b":
		return orderbook.Buy, nil
	case "sell", "ask", "s":
		return orderbook.Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", value)
	}
}

func toPublicTrade(t orderbook.Trade) publicTrade {
	return publicTrade{
		Timestamp: t.Timestamp,
		Side:      strings.ToLower(t.Side.String()),
		Price:     t.Price.String(),
		Size:      t.Size,
		TakerID:   t.TakerID,
		MakerID:   t.MakerID,
	}
}

func toQuoteView(q orderbook.Quote) quoteView {
	var v quoteView
	if q.HasBid {
		v.Bid = q.Bid.String()
	}
	if q.HasAsk {
		v.Ask = q.Ask.String()
	}
	return v
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
