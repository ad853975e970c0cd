package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/barterhub/barterhub/internal/domain/trade"
)

const tradeColumns = `id, trade_id, buyer_id, seller_id, target_product_id, offered_cash_amount::text, message,
	status, trade_option, delivery_address, option_change_requested,
	meetup_location, buyer_meetup_confirmed, seller_meetup_confirmed,
	buyer_completed, seller_completed, buyer_rating, seller_rating, buyer_feedback, seller_feedback,
	cancelled_by, cancel_reason, version, created_at, updated_at, accepted_at, activated_at, completed_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TradeRepository implements trade.Repository.
type TradeRepository struct {
	pool *pgxpool.Pool
}

func NewTradeRepository(pool *pgxpool.Pool) *TradeRepository {
	return &TradeRepository{pool: pool}
}

func (r *TradeRepository) Create(ctx context.Context, t *trade.Trade) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	changeReq, err := marshalChangeRequest(t.OptionChangeRequest)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO trades
		(trade_id, buyer_id, seller_id, target_product_id, offered_cash_amount, message, status,
		 trade_option, delivery_address, option_change_requested, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5::numeric,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`, t.TradeID, t.BuyerID, t.SellerID, t.TargetProductID, t.OfferedCashAmount.String(), t.Message, t.Status,
		optionValue(t.TradeOption), t.DeliveryAddress, changeReq, t.Version, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if err != nil {
		return err
	}
	if err := insertItems(ctx, tx, t.TradeID, t.Items); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *TradeRepository) GetByID(ctx context.Context, tradeID uuid.UUID) (*trade.Trade, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE trade_id=$1`, tradeID)
	t, err := scanTrade(row)
	if err != nil || t == nil {
		return nil, err
	}
	if err := attachItems(ctx, r.pool, []*trade.Trade{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TradeRepository) List(ctx context.Context, filter trade.Filter, limit, offset int) ([]*trade.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE `
	args := []any{filter.UserID}
	switch filter.Role {
	case trade.RoleBuyer:
		query += `buyer_id=$1`
	case trade.RoleSeller:
		query += `seller_id=$1`
	default:
		query += `(buyer_id=$1 OR seller_id=$1)`
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY updated_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*trade.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachItems(ctx, r.pool, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Mutate locks the trade row for the duration of fn, so concurrent actions on the
// same trade observe each other's committed writes.
func (r *TradeRepository) Mutate(ctx context.Context, tradeID uuid.UUID, fn trade.MutateFunc) (*trade.Trade, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE trade_id=$1 FOR UPDATE`, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, trade.ErrTradeNotFound
	}
	if err := attachItems(ctx, tx, []*trade.Trade{t}); err != nil {
		return nil, err
	}

	prevVersion := t.Version
	if err := fn(t); err != nil {
		return nil, err
	}
	if t.Version == prevVersion {
		return t, tx.Commit(ctx)
	}

	if err := updateTrade(ctx, tx, t, prevVersion); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM trade_items WHERE trade_id=$1`, t.TradeID); err != nil {
		return nil, err
	}
	if err := insertItems(ctx, tx, t.TradeID, t.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TradeRepository) CreateEvent(ctx context.Context, event *trade.Event) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO trade_events
		(event_id, trade_id, version, type, actor, from_status, to_status, payload, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, event.EventID, event.TradeID, event.Version, event.Type, event.Actor, event.FromStatus, event.ToStatus, nullJSON(event.Payload), event.CreatedAt).Scan(&event.ID)
}

func (r *TradeRepository) ListEvents(ctx context.Context, tradeID uuid.UUID, limit, offset int) ([]*trade.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, trade_id, version, type, actor, from_status, to_status, payload, created_at
		FROM trade_events
		WHERE trade_id=$1
		ORDER BY version ASC, id ASC
		LIMIT $2 OFFSET $3
	`, tradeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*trade.Event
	for rows.Next() {
		var e trade.Event
		var payload []byte
		if err := rows.Scan(&e.ID, &e.EventID, &e.TradeID, &e.Version, &e.Type, &e.Actor, &e.FromStatus, &e.ToStatus, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			e.Payload = payload
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func updateTrade(ctx context.Context, tx pgx.Tx, t *trade.Trade, prevVersion int64) error {
	changeReq, err := marshalChangeRequest(t.OptionChangeRequest)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE trades SET
			offered_cash_amount=$1::numeric, message=$2, status=$3, trade_option=$4, delivery_address=$5,
			option_change_requested=$6, meetup_location=$7, buyer_meetup_confirmed=$8, seller_meetup_confirmed=$9,
			buyer_completed=$10, seller_completed=$11, buyer_rating=$12, seller_rating=$13,
			buyer_feedback=$14, seller_feedback=$15, cancelled_by=$16, cancel_reason=$17,
			version=$18, updated_at=$19, accepted_at=$20, activated_at=$21, completed_at=$22
		WHERE trade_id=$23 AND version=$24
	`, t.OfferedCashAmount.String(), t.Message, t.Status, optionValue(t.TradeOption), t.DeliveryAddress,
		changeReq, t.MeetupLocation, t.BuyerMeetupConfirmed, t.SellerMeetupConfirmed,
		t.BuyerCompleted, t.SellerCompleted, t.BuyerRating, t.SellerRating,
		t.BuyerFeedback, t.SellerFeedback, t.CancelledBy, t.CancelReason,
		t.Version, t.UpdatedAt, t.AcceptedAt, t.ActivatedAt, t.CompletedAt,
		t.TradeID, prevVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("trade %s changed concurrently at version %d", t.TradeID, prevVersion)
	}
	return nil
}

func insertItems(ctx context.Context, tx pgx.Tx, tradeID uuid.UUID, items []trade.Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(`
			INSERT INTO trade_items (trade_id, position, product_id, offered_by)
			VALUES ($1,$2,$3,$4)
		`, tradeID, i, it.ProductID, it.OfferedBy)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func attachItems(ctx context.Context, q querier, trades []*trade.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*trade.Trade, len(trades))
	ids := make([]uuid.UUID, 0, len(trades))
	for _, t := range trades {
		byID[t.TradeID] = t
		ids = append(ids, t.TradeID)
	}
	rows, err := q.Query(ctx, `
		SELECT trade_id, product_id, offered_by
		FROM trade_items
		WHERE trade_id = ANY($1)
		ORDER BY trade_id, position
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var tradeID uuid.UUID
		var it trade.Item
		if err := rows.Scan(&tradeID, &it.ProductID, &it.OfferedBy); err != nil {
			return err
		}
		if t := byID[tradeID]; t != nil {
			t.Items = append(t.Items, it)
		}
	}
	return rows.Err()
}

func scanTrade(row pgx.Row) (*trade.Trade, error) {
	var t trade.Trade
	var cash string
	var option *string
	var changeReq []byte
	var buyerRating, sellerRating *int16
	var cancelledBy *uuid.UUID
	var acceptedAt, activatedAt, completedAt *time.Time
	if err := row.Scan(&t.ID, &t.TradeID, &t.BuyerID, &t.SellerID, &t.TargetProductID, &cash, &t.Message,
		&t.Status, &option, &t.DeliveryAddress, &changeReq,
		&t.MeetupLocation, &t.BuyerMeetupConfirmed, &t.SellerMeetupConfirmed,
		&t.BuyerCompleted, &t.SellerCompleted, &buyerRating, &sellerRating, &t.BuyerFeedback, &t.SellerFeedback,
		&cancelledBy, &t.CancelReason, &t.Version, &t.CreatedAt, &t.UpdatedAt, &acceptedAt, &activatedAt, &completedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	amount, err := decimal.NewFromString(cash)
	if err != nil {
		return nil, fmt.Errorf("invalid offered cash amount %q: %w", cash, err)
	}
	t.OfferedCashAmount = amount
	if option != nil {
		o := trade.Option(*option)
		t.TradeOption = &o
	}
	if len(changeReq) > 0 {
		var req trade.OptionChangeRequest
		if err := json.Unmarshal(changeReq, &req); err != nil {
			return nil, err
		}
		t.OptionChangeRequest = &req
	}
	t.BuyerRating = ratingValue(buyerRating)
	t.SellerRating = ratingValue(sellerRating)
	t.CancelledBy = cancelledBy
	t.AcceptedAt = acceptedAt
	t.ActivatedAt = activatedAt
	t.CompletedAt = completedAt
	return &t, nil
}

func marshalChangeRequest(req *trade.OptionChangeRequest) ([]byte, error) {
	if req == nil {
		return nil, nil
	}
	return json.Marshal(req)
}

func optionValue(o *trade.Option) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}

func ratingValue(v *int16) *int {
	if v == nil {
		return nil
	}
	r := int(*v)
	return &r
}

func nullJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
