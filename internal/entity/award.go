package entity

import "time"

// Award is one successful-bid outcome. Awards are an append-only multiset:
// unlike notices they carry no uniqueness constraint, and the pipeline
// performs no deduplication on them.
type Award struct {
	ID             int64
	NoticeNo       string
	NoticeOrd      string
	OpenedAt       *time.Time
	CompanyName    string
	AwardAmount    *int64
	EstimatedPrice *int64
	AwardRate      *float64
	WorkCategory   string
	CreatedAt      time.Time
}
