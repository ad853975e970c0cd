package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appTrade "github.com/barterhub/barterhub/internal/application/trade"
	"github.com/barterhub/barterhub/internal/domain/trade"
)

type tradeResponse struct {
	*trade.Trade
	Progress trade.Progress `json:"progress"`
}

func newTradeResponse(t *trade.Trade) tradeResponse {
	return tradeResponse{Trade: t, Progress: t.Progress()}
}

type proposeTradeRequest struct {
	TargetProductID   uuid.UUID       `json:"targetProductId"`
	OfferedProductIDs []uuid.UUID     `json:"offeredProductIds"`
	OfferedCashAmount decimal.Decimal `json:"offeredCashAmount"`
	Message           string          `json:"message"`
	TradeOption       string          `json:"tradeOption"`
	DeliveryAddress   string          `json:"deliveryAddress"`
}

type counterTradeRequest struct {
	ProductIDs        []uuid.UUID     `json:"productIds"`
	OfferedCashAmount decimal.Decimal `json:"offeredCashAmount"`
	Message           string          `json:"message"`
}

type cancelTradeRequest struct {
	Reason string `json:"reason"`
}

type optionRequest struct {
	TradeOption     string `json:"tradeOption"`
	DeliveryAddress string `json:"deliveryAddress"`
}

type meetupRequest struct {
	Location string `json:"location"`
}

type completionRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// Trade handlers
func (s *Server) proposeTrade(w http.ResponseWriter, r *http.Request) {
	var req proposeTradeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	in := appTrade.ProposeInput{
		BuyerID:           callerID(r.Context()),
		TargetProductID:   req.TargetProductID,
		OfferedProductIDs: req.OfferedProductIDs,
		OfferedCashAmount: req.OfferedCashAmount,
		Message:           req.Message,
		DeliveryAddress:   req.DeliveryAddress,
	}
	if req.TradeOption != "" {
		opt, ok := trade.ParseOption(req.TradeOption)
		if !ok {
			respondError(w, http.StatusBadRequest, "VALIDATION", "tradeOption must be MEETUP or DELIVERY")
			return
		}
		in.TradeOption = &opt
	}
	t, err := s.tradeSvc.Propose(r.Context(), in)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newTradeResponse(t))
}

func (s *Server) listTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := appTrade.ListInput{
		Caller: callerID(r.Context()),
		Role:   trade.Role(strings.ToLower(q.Get("role"))),
	}
	if v := q.Get("status"); v != "" {
		st := trade.Status(strings.ToUpper(v))
		in.Status = &st
	}
	in.Limit, in.Offset = parseLimitOffset(r)

	trades, err := s.tradeSvc.List(r.Context(), in)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	items := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		items = append(items, newTradeResponse(t))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (s *Server) getTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := tradeIDParam(w, r)
	if !ok {
		return
	}
	t, err := s.tradeSvc.Get(r.Context(), id, callerID(r.Context()))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTradeResponse(t))
}

func (s *Server) listTradeEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := tradeIDParam(w, r)
	if !ok {
		return
	}
	limit, offset := parseLimitOffset(r)
	events, err := s.tradeSvc.ListEvents(r.Context(), id, callerID(r.Context()), limit, offset)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": events})
}

func (s *Server) acceptTrade(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, s.tradeSvc.Accept)
}

func (s *Server) declineTrade(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, s.tradeSvc.Decline)
}

func (s *Server) approveOptionChange(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, s.tradeSvc.ApproveOptionChange)
}

func (s *Server) rejectOptionChange(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, s.tradeSvc.RejectOptionChange)
}

func (s *Server) counterTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := tradeIDParam(w, r)
	if !ok {
		return
	}
	var req counterTradeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	t, err := s.tradeSvc.Counter(r.Context(), appTrade.CounterInput{
		TradeID:           id,
		Caller:            callerID(r.Context()),
		ProductIDs:        req.ProductIDs,
		OfferedCashAmount: req.OfferedCashAmount,
		Message:           req.Message,
	})
	s.respondTrade(w, r, t, err)
}

func (s *Server) cancelTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := tradeIDParam(w, r)
	if !ok {
		return
	}
	var req cancelTradeRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	t, err := s.tradeSvc.Cancel(r.Context(), id, callerID(r.Context()), req.Reason)
	s.respondTrade(w, r, t, err)
}

func (s *Server) selectOption(w http.ResponseWriter, r *http.Request) {
	s.optionAction(w, r, s.tradeSvc.SelectOption)
}

func (s *Server) requestOptionChange(w http.ResponseWriter, r *http.Request) {
	s.optionAction(w, r, s.tradeSvc.RequestOptionChange)
}

func (s *Server) confirmMeetup(w http.ResponseWriter, r *http.Request) {
	id, ok := tradeIDParam(w, r)
	if !ok {
		return
	}
	var req meetupRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	t, err := s.tradeSvc.ConfirmMeetup(r.Context(), id, callerID(r.Context()), req.Location)
	s.respondTrade(w, r, t, err)
}

func (s *Server) submitCompletion(w http.ResponseWriter, r *http.Request) {
	id, ok := tradeIDParam(w, r)
	if !ok {
		return
	}
	var req completionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	t, err := s.tradeSvc.SubmitCompletion(r.Context(), appTrade.CompletionInput{
		TradeID:  id,
		Caller:   callerID(r.Context()),
		Rating:   req.Rating,
		Feedback: req.Feedback,
	})
	s.respondTrade(w, r, t, err)
}

type tradeActionFunc func(ctx context.Context, tradeID, caller uuid.UUID) (*trade.Trade, error)

func (s *Server) simpleAction(w http.ResponseWriter, r *http.Request, action tradeActionFunc) {
	id, ok := tradeIDParam(w, r)
	if !ok {
		return
	}
	t, err := action(r.Context(), id, callerID(r.Context()))
	s.respondTrade(w, r, t, err)
}

type optionActionFunc func(ctx context.Context, in appTrade.OptionInput) (*trade.Trade, error)

func (s *Server) optionAction(w http.ResponseWriter, r *http.Request, action optionActionFunc) {
	id, ok := tradeIDParam(w, r)
	if !ok {
		return
	}
	var req optionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	opt, valid := trade.ParseOption(req.TradeOption)
	if !valid {
		respondError(w, http.StatusBadRequest, "VALIDATION", "tradeOption must be MEETUP or DELIVERY")
		return
	}
	t, err := action(r.Context(), appTrade.OptionInput{
		TradeID:         id,
		Caller:          callerID(r.Context()),
		Option:          opt,
		DeliveryAddress: req.DeliveryAddress,
	})
	s.respondTrade(w, r, t, err)
}

func (s *Server) respondTrade(w http.ResponseWriter, r *http.Request, t *trade.Trade, err error) {
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTradeResponse(t))
}

func tradeIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := parseUUIDParam(r, "tradeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid trade id")
		return uuid.Nil, false
	}
	return id, true
}
