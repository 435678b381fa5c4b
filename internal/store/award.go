package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bidwatch/koneps-sync/internal/entity"
)

var awardColumns = []string{
	"bid_notice_no", "bid_notice_ord", "openg_dt", "scsbid_corp_nm",
	"scsbid_amount", "presmpt_price", "scsbid_rate", "work_div_nm",
}

// AwardRepo stores successful-bid outcomes. Awards carry no uniqueness
// constraint; every insert appends.
type AwardRepo struct {
	*Postgres
}

// NewAwardRepo creates the award repository.
func NewAwardRepo(pg *Postgres) *AwardRepo {
	return &AwardRepo{pg}
}

// InsertBatch appends the awards in windows of 500 rows inside one
// transaction, all-or-nothing.
func (r *AwardRepo) InsertBatch(ctx context.Context, awards []entity.Award) (int, error) {
	if len(awards) == 0 {
		return 0, nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin award insert: %w", err)
	}

	for _, window := range chunk(len(awards), insertBatchSize) {
		builder := r.Builder.Insert("successful_bids").Columns(awardColumns...)
		for _, a := range awards[window[0]:window[1]] {
			builder = builder.Values(
				a.NoticeNo, a.NoticeOrd, a.OpenedAt, a.CompanyName,
				a.AwardAmount, a.EstimatedPrice, a.AwardRate, a.WorkCategory,
			)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert award batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit award insert: %w", err)
	}

	return len(awards), nil
}

// List returns stored awards, newest opening first.
func (r *AwardRepo) List(ctx context.Context, pg entity.Page) ([]entity.Award, error) {
	query, args, err := r.Builder.
		Select(append([]string{"id"}, awardColumns...)...).
		From("successful_bids").
		OrderBy("openg_dt DESC NULLS LAST", "id DESC").
		Offset(uint64(pg.Offset)).
		Limit(uint64(pg.Limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	defer rows.Close()

	awards := make([]entity.Award, 0, pg.Limit)
	for rows.Next() {
		var (
			a                       entity.Award
			openg                   sql.NullTime
			amount, estimated       sql.NullInt64
			rate                    sql.NullFloat64
			company, ord, workCat   sql.NullString
		)
		if err := rows.Scan(
			&a.ID, &a.NoticeNo, &ord, &openg, &company,
			&amount, &estimated, &rate, &workCat,
		); err != nil {
			return nil, err
		}
		a.NoticeOrd = ord.String
		a.CompanyName = company.String
		a.WorkCategory = workCat.String
		a.OpenedAt = nullTimePtr(openg)
		a.AwardAmount = nullInt64Ptr(amount)
		a.EstimatedPrice = nullInt64Ptr(estimated)
		a.AwardRate = nullFloat64Ptr(rate)
		awards = append(awards, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return awards, nil
}

// Count returns the number of stored awards.
func (r *AwardRepo) Count(ctx context.Context) (int, error) {
	query, args, err := r.Builder.Select("count(*)").From("successful_bids").ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count awards: %w", err)
	}
	return count, nil
}
