// Package entity holds the stored domain records of the procurement sync.
package entity

import "time"

// DefaultNoticeOrd is assumed when the upstream omits the notice order.
const DefaultNoticeOrd = "00"

// NoticeKey is the natural key of a bid notice: notice number plus the
// re-announcement order. No two stored notices share a key.
type NoticeKey struct {
	NoticeNo  string
	NoticeOrd string
}

// Notice is one procurement bid notice. Records are only ever inserted by
// the sync pipeline, never updated or deleted by it.
type Notice struct {
	ID             int64
	NoticeNo       string
	NoticeOrd      string
	Title          string
	IssuingOrg     string
	RegisteredAt   *time.Time
	BidOpenAt      *time.Time
	BidCloseAt     *time.Time
	OpenedAt       *time.Time
	EstimatedPrice *int64
	BudgetAmount   *int64
	BidMethod      string
	ContractMethod string
	WorkCategory   string
	CreatedAt      time.Time
}

// Key returns the notice's natural key, defaulting an empty order to "00".
func (n Notice) Key() NoticeKey {
	ord := n.NoticeOrd
	if ord == "" {
		ord = DefaultNoticeOrd
	}
	return NoticeKey{NoticeNo: n.NoticeNo, NoticeOrd: ord}
}
