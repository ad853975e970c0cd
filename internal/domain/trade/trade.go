package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the trade lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusDeclined  Status = "DECLINED"
	StatusCountered Status = "COUNTERED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCountered,
		StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for states that accept no further mutation.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusDeclined || s == StatusCancelled
}

// Party identifies one side of a trade.
type Party string

const (
	PartyBuyer  Party = "BUYER"
	PartySeller Party = "SELLER"
)

// Other returns the counterparty.
func (p Party) Other() Party {
	if p == PartyBuyer {
		return PartySeller
	}
	return PartyBuyer
}

// Option is the fulfillment method.
type Option string

const (
	OptionMeetup   Option = "MEETUP"
	OptionDelivery Option = "DELIVERY"
)

// Valid reports whether o is a known option.
func (o Option) Valid() bool {
	return o == OptionMeetup || o == OptionDelivery
}

// ParseOption accepts option names case-insensitively.
func ParseOption(v string) (Option, bool) {
	o := Option(strings.ToUpper(strings.TrimSpace(v)))
	return o, o.Valid()
}

const (
	MinRating         = 1
	MaxRating         = 5
	MaxMessageLength  = 1000
	MaxFeedbackLength = 1000
	MaxAddressLength  = 500
	MaxLocationLength = 300
)

// CashScale is the number of decimal places a cash amount may carry.
const CashScale = 2

// MaxCashAmount is the largest cash amount a trade can store.
var MaxCashAmount = decimal.RequireFromString("999999999999.99")

// Item is one product offered by one side of a trade.
type Item struct {
	ProductID uuid.UUID `json:"productId"`
	OfferedBy Party     `json:"offeredBy"`
}

// OptionChangeRequest is an outstanding buyer request to change the fulfillment option.
type OptionChangeRequest struct {
	RequestedOption          Option    `json:"requestedOption"`
	RequestedBy              uuid.UUID `json:"requestedBy"`
	RequestedDeliveryAddress string    `json:"requestedDeliveryAddress,omitempty"`
	RequestedAt              time.Time `json:"requestedAt"`
}

// Trade is the aggregate root of a negotiated exchange between a buyer and a seller.
type Trade struct {
	ID                int64           `json:"-"`
	TradeID           uuid.UUID       `json:"tradeId"`
	BuyerID           uuid.UUID       `json:"buyerId"`
	SellerID          uuid.UUID       `json:"sellerId"`
	TargetProductID   uuid.UUID       `json:"targetProductId"`
	Items             []Item          `json:"items"`
	OfferedCashAmount decimal.Decimal `json:"offeredCashAmount"`
	Message           string          `json:"message,omitempty"`
	Status            Status          `json:"status"`

	TradeOption         *Option              `json:"tradeOption,omitempty"`
	DeliveryAddress     string               `json:"deliveryAddress,omitempty"`
	OptionChangeRequest *OptionChangeRequest `json:"optionChangeRequest,omitempty"`

	MeetupLocation        string `json:"meetupLocation,omitempty"`
	BuyerMeetupConfirmed  bool   `json:"buyerMeetupConfirmed"`
	SellerMeetupConfirmed bool   `json:"sellerMeetupConfirmed"`

	BuyerCompleted  bool   `json:"buyerCompleted"`
	SellerCompleted bool   `json:"sellerCompleted"`
	BuyerRating     *int   `json:"buyerRating,omitempty"`
	SellerRating    *int   `json:"sellerRating,omitempty"`
	BuyerFeedback   string `json:"buyerFeedback,omitempty"`
	SellerFeedback  string `json:"sellerFeedback,omitempty"`

	CancelledBy  *uuid.UUID `json:"cancelledBy,omitempty"`
	CancelReason string     `json:"cancelReason,omitempty"`

	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ProposeInput carries a buyer's initial proposal. Items must already be resolved
// against the catalog.
type ProposeInput struct {
	BuyerID           uuid.UUID
	SellerID          uuid.UUID
	TargetProductID   uuid.UUID
	Items             []Item
	OfferedCashAmount decimal.Decimal
	Message           string
	TradeOption       *Option
	DeliveryAddress   string
}

// NewTrade validates a proposal and creates a pending trade.
func NewTrade(in ProposeInput, now time.Time) (*Trade, error) {
	if in.BuyerID == uuid.Nil || in.SellerID == uuid.Nil {
		return nil, validationf("buyer and seller are required")
	}
	if in.BuyerID == in.SellerID {
		return nil, validationf("you cannot propose a trade for your own product")
	}
	if in.TargetProductID == uuid.Nil {
		return nil, validationf("target product is required")
	}
	for _, it := range in.Items {
		if it.OfferedBy != PartyBuyer {
			return nil, validationf("a proposal may only offer the buyer's own products")
		}
	}
	if err := validateTerms(in.TargetProductID, in.Items, in.OfferedCashAmount, in.Message); err != nil {
		return nil, err
	}
	address := strings.TrimSpace(in.DeliveryAddress)
	if in.TradeOption != nil {
		if err := validateOption(*in.TradeOption, address); err != nil {
			return nil, err
		}
	} else if address != "" {
		return nil, validationf("delivery address given without a delivery option")
	}

	t := &Trade{
		TradeID:           uuid.New(),
		BuyerID:           in.BuyerID,
		SellerID:          in.SellerID,
		TargetProductID:   in.TargetProductID,
		Items:             cloneItems(in.Items),
		OfferedCashAmount: in.OfferedCashAmount,
		Message:           strings.TrimSpace(in.Message),
		Status:            StatusPending,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.TradeOption != nil {
		opt := *in.TradeOption
		t.TradeOption = &opt
		if opt == OptionDelivery {
			t.DeliveryAddress = address
		}
	}
	return t, nil
}

// CanTransitionTo checks the top-level state machine.
func (t *Trade) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending:   {StatusAccepted, StatusDeclined, StatusCountered, StatusCancelled},
		StatusCountered: {StatusPending, StatusCancelled},
		StatusAccepted:  {StatusActive, StatusCancelled},
		StatusActive:    {StatusCompleted, StatusCancelled},
		StatusCompleted: {},
		StatusDeclined:  {},
		StatusCancelled: {},
	}
	for _, s := range transitions[t.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// PartyOf resolves the caller's side of the trade.
func (t *Trade) PartyOf(caller uuid.UUID) (Party, bool) {
	switch caller {
	case uuid.Nil:
		return "", false
	case t.BuyerID:
		return PartyBuyer, true
	case t.SellerID:
		return PartySeller, true
	}
	return "", false
}

// IsParticipant reports whether caller is the buyer or the seller.
func (t *Trade) IsParticipant(caller uuid.UUID) bool {
	_, ok := t.PartyOf(caller)
	return ok
}

// AwaitingParty returns the side that must respond to the current terms, if any.
func (t *Trade) AwaitingParty() (Party, bool) {
	switch t.Status {
	case StatusPending:
		return PartySeller, true
	case StatusCountered:
		return PartyBuyer, true
	}
	return "", false
}

// OptionLocked reports whether the fulfillment option is frozen.
func (t *Trade) OptionLocked() bool {
	return t.Status == StatusActive || t.Status == StatusCompleted
}

// MeetupConfirmed is true only once both sides confirmed the same location.
func (t *Trade) MeetupConfirmed() bool {
	return t.TradeOption != nil && *t.TradeOption == OptionMeetup &&
		t.BuyerMeetupConfirmed && t.SellerMeetupConfirmed
}

// Completed reports whether the given side has submitted completion.
func (t *Trade) Completed(p Party) bool {
	if p == PartyBuyer {
		return t.BuyerCompleted
	}
	return t.SellerCompleted
}

// WaitingForCounterparty is true when p completed and the other side has not.
func (t *Trade) WaitingForCounterparty(p Party) bool {
	return t.Completed(p) && !t.Completed(p.Other())
}

// Progress is the derived view of a trade shared by every reader.
type Progress struct {
	Status                Status `json:"status"`
	AwaitingParty         Party  `json:"awaitingParty,omitempty"`
	OptionLocked          bool   `json:"optionLocked"`
	OptionChangePending   bool   `json:"optionChangePending"`
	MeetupRequired        bool   `json:"meetupRequired"`
	BuyerMeetupConfirmed  bool   `json:"buyerMeetupConfirmed"`
	SellerMeetupConfirmed bool   `json:"sellerMeetupConfirmed"`
	MeetupConfirmed       bool   `json:"meetupConfirmed"`
	BuyerWaiting          bool   `json:"buyerWaiting"`
	SellerWaiting         bool   `json:"sellerWaiting"`
	Settled               bool   `json:"settled"`
	Terminal              bool   `json:"terminal"`
}

// Progress derives protocol progress from the stored fields.
func (t *Trade) Progress() Progress {
	awaiting, _ := t.AwaitingParty()
	meetup := t.TradeOption != nil && *t.TradeOption == OptionMeetup
	return Progress{
		Status:                t.Status,
		AwaitingParty:         awaiting,
		OptionLocked:          t.OptionLocked(),
		OptionChangePending:   t.OptionChangeRequest != nil,
		MeetupRequired:        meetup,
		BuyerMeetupConfirmed:  meetup && t.BuyerMeetupConfirmed,
		SellerMeetupConfirmed: meetup && t.SellerMeetupConfirmed,
		MeetupConfirmed:       t.MeetupConfirmed(),
		BuyerWaiting:          t.WaitingForCounterparty(PartyBuyer),
		SellerWaiting:         t.WaitingForCounterparty(PartySeller),
		Settled:               t.Status == StatusCompleted && t.BuyerCompleted && t.SellerCompleted,
		Terminal:              t.Status.IsTerminal(),
	}
}

// BuyerItems returns items offered by the buyer.
func (t *Trade) BuyerItems() []Item {
	return itemsBy(t.Items, PartyBuyer)
}

// SellerItems returns items offered by the seller in addition to the target product.
func (t *Trade) SellerItems() []Item {
	return itemsBy(t.Items, PartySeller)
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	c := *t
	c.Items = cloneItems(t.Items)
	if t.TradeOption != nil {
		o := *t.TradeOption
		c.TradeOption = &o
	}
	if t.OptionChangeRequest != nil {
		r := *t.OptionChangeRequest
		c.OptionChangeRequest = &r
	}
	c.BuyerRating = cloneInt(t.BuyerRating)
	c.SellerRating = cloneInt(t.SellerRating)
	if t.CancelledBy != nil {
		id := *t.CancelledBy
		c.CancelledBy = &id
	}
	c.AcceptedAt = cloneTime(t.AcceptedAt)
	c.ActivatedAt = cloneTime(t.ActivatedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

// touch records an accepted mutation.
func (t *Trade) touch(now time.Time) {
	t.Version++
	t.UpdatedAt = now
}

// requireParty resolves the caller or returns a forbidden error.
func (t *Trade) requireParty(caller uuid.UUID) (Party, error) {
	p, ok := t.PartyOf(caller)
	if !ok {
		return "", forbiddenf("you are not a participant in this trade")
	}
	return p, nil
}

// requireNotTerminal rejects any action on a settled or closed trade.
func (t *Trade) requireNotTerminal() error {
	if t.Status.IsTerminal() {
		return invalidStatef("trade is already %s", strings.ToLower(string(t.Status)))
	}
	return nil
}

func validateTerms(target uuid.UUID, items []Item, cash decimal.Decimal, message string) error {
	if cash.IsNegative() {
		return validationf("offered cash amount cannot be negative")
	}
	if !cash.Equal(cash.Round(CashScale)) {
		return validationf("offered cash amount allows at most %d decimal places", CashScale)
	}
	if cash.GreaterThan(MaxCashAmount) {
		return validationf("offered cash amount exceeds %s", MaxCashAmount.StringFixed(CashScale))
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	buyerItems := 0
	for _, it := range items {
		if it.ProductID == uuid.Nil {
			return validationf("item product id is required")
		}
		if it.OfferedBy != PartyBuyer && it.OfferedBy != PartySeller {
			return validationf("item %s has no offering party", it.ProductID)
		}
		if it.ProductID == target {
			return validationf("the requested product cannot also be offered")
		}
		if _, dup := seen[it.ProductID]; dup {
			return validationf("product %s is offered more than once", it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
		if it.OfferedBy == PartyBuyer {
			buyerItems++
		}
	}
	if buyerItems == 0 && !cash.IsPositive() {
		return ErrInvalidOffer
	}
	if len([]rune(strings.TrimSpace(message))) > MaxMessageLength {
		return validationf("message exceeds %d characters", MaxMessageLength)
	}
	return nil
}

func validateOption(o Option, address string) error {
	if !o.Valid() {
		return validationf("trade option must be MEETUP or DELIVERY")
	}
	if o == OptionDelivery {
		if address == "" {
			return validationf("delivery address is required for delivery")
		}
		if len([]rune(address)) > MaxAddressLength {
			return validationf("delivery address exceeds %d characters", MaxAddressLength)
		}
	}
	return nil
}

func itemsBy(items []Item, p Party) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.OfferedBy == p {
			out = append(out, it)
		}
	}
	return out
}

func cloneItems(in []Item) []Item {
	if in == nil {
		return nil
	}
	out := make([]Item, len(in))
	copy(out, in)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
