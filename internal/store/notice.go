package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bidwatch/koneps-sync/internal/entity"
)

// noticeColumns are the insertable columns of bid_notices, in insert order.
var noticeColumns = []string{
	"bid_notice_no", "bid_notice_nm", "bid_notice_ord", "dminstt_nm",
	"rgst_dt", "bid_begin_dt", "bid_close_dt", "openg_dt",
	"presmpt_price", "basic_amount", "bid_method_nm",
	"cntrct_cncls_mthd_nm", "work_div_nm",
}

// NoticeRepo stores bid notices.
type NoticeRepo struct {
	*Postgres
}

// NewNoticeRepo creates the notice repository.
func NewNoticeRepo(pg *Postgres) *NoticeRepo {
	return &NoticeRepo{pg}
}

// ExistingKeys loads the natural keys of every stored notice in one query.
func (r *NoticeRepo) ExistingKeys(ctx context.Context) (map[entity.NoticeKey]struct{}, error) {
	query, args, err := r.Builder.
		Select("bid_notice_no", "bid_notice_ord").
		From("bid_notices").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing notice keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[entity.NoticeKey]struct{})
	for rows.Next() {
		var key entity.NoticeKey
		if err := rows.Scan(&key.NoticeNo, &key.NoticeOrd); err != nil {
			return nil, err
		}
		keys[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

// InsertBatch inserts the notices in windows of 500 rows inside one
// transaction. Any failure rolls the whole transaction back, so either
// every notice is stored or none is.
func (r *NoticeRepo) InsertBatch(ctx context.Context, notices []entity.Notice) (int, error) {
	if len(notices) == 0 {
		return 0, nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin notice insert: %w", err)
	}

	for _, window := range chunk(len(notices), insertBatchSize) {
		builder := r.Builder.Insert("bid_notices").Columns(noticeColumns...)
		for _, n := range notices[window[0]:window[1]] {
			builder = builder.Values(
				n.NoticeNo, n.Title, n.Key().NoticeOrd, n.IssuingOrg,
				n.RegisteredAt, n.BidOpenAt, n.BidCloseAt, n.OpenedAt,
				n.EstimatedPrice, n.BudgetAmount, n.BidMethod,
				n.ContractMethod, n.WorkCategory,
			)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert notice batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit notice insert: %w", err)
	}

	return len(notices), nil
}

// List returns stored notices, newest registration first.
func (r *NoticeRepo) List(ctx context.Context, pg entity.Page) ([]entity.Notice, error) {
	query, args, err := r.Builder.
		Select(append([]string{"id"}, noticeColumns...)...).
		From("bid_notices").
		OrderBy("rgst_dt DESC NULLS LAST", "id DESC").
		Offset(uint64(pg.Offset)).
		Limit(uint64(pg.Limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	notices := make([]entity.Notice, 0, pg.Limit)
	for rows.Next() {
		var (
			n                                  entity.Notice
			rgst, bidBegin, bidClose, openg    sql.NullTime
			estimatedPrice, budgetAmount       sql.NullInt64
			issuingOrg, bidMethod, contractMth sql.NullString
			workCategory                       sql.NullString
		)
		if err := rows.Scan(
			&n.ID, &n.NoticeNo, &n.Title, &n.NoticeOrd, &issuingOrg,
			&rgst, &bidBegin, &bidClose, &openg,
			&estimatedPrice, &budgetAmount, &bidMethod,
			&contractMth, &workCategory,
		); err != nil {
			return nil, err
		}
		n.IssuingOrg = issuingOrg.String
		n.BidMethod = bidMethod.String
		n.ContractMethod = contractMth.String
		n.WorkCategory = workCategory.String
		n.RegisteredAt = nullTimePtr(rgst)
		n.BidOpenAt = nullTimePtr(bidBegin)
		n.BidCloseAt = nullTimePtr(bidClose)
		n.OpenedAt = nullTimePtr(openg)
		n.EstimatedPrice = nullInt64Ptr(estimatedPrice)
		n.BudgetAmount = nullInt64Ptr(budgetAmount)
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notices, nil
}

// Count returns the number of stored notices.
func (r *NoticeRepo) Count(ctx context.Context) (int, error) {
	query, args, err := r.Builder.Select("count(*)").From("bid_notices").ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notices: %w", err)
	}
	return count, nil
}
