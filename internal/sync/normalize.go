package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bidwatch/koneps-sync/internal/entity"
)

// Storage column widths. Longer upstream values are truncated silently,
// matching the columns in migrations/0001_init.up.sql.
const (
	maxTitleLen    = 500
	maxOrgLen      = 200
	maxMethodLen   = 100
	maxCategoryLen = 50
)

// looseString tolerates the upstream emitting a field as either a JSON
// string or a bare number.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	*s = looseString(trimmed)
	return nil
}

// noticeItem mirrors the upstream bid-notice record fields.
type noticeItem struct {
	BidNtceNo         string      `json:"bidNtceNo"`
	BidNtceOrd        string      `json:"bidNtceOrd"`
	BidNtceNm         string      `json:"bidNtceNm"`
	DminsttNm         string      `json:"dminsttNm"`
	RgstDt            string      `json:"rgstDt"`
	BidBeginDt        string      `json:"bidBeginDt"`
	BidClseDt         string      `json:"bidClseDt"`
	OpengDt           string      `json:"opengDt"`
	PresmptPrce       looseString `json:"presmptPrce"`
	AsignBdgtAmt      looseString `json:"asignBdgtAmt"`
	BidMethdNm        string      `json:"bidMethdNm"`
	CntrctCnclsMthdNm string      `json:"cntrctCnclsMthdNm"`
	TaskClsfcNm       string      `json:"taskClsfcNm"`
}

// awardItem mirrors the upstream successful-bid record fields.
type awardItem struct {
	BidNtceNo    string      `json:"bidNtceNo"`
	BidNtceOrd   string      `json:"bidNtceOrd"`
	OpengDt      string      `json:"opengDt"`
	ScsbidCorpNm string      `json:"scsbidCorpNm"`
	ScsbidAmt    looseString `json:"scsbidAmt"`
	PresmptPrce  looseString `json:"presmptPrce"`
	ScsbidRate   looseString `json:"scsbidRate"`
	TaskClsfcNm  string      `json:"taskClsfcNm"`
}

// NoticeFromRaw decodes one upstream record into a storable notice,
// truncating strings to column width and nulling unparseable dates and
// amounts instead of failing.
func NoticeFromRaw(raw json.RawMessage) (entity.Notice, error) {
	var item noticeItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return entity.Notice{}, fmt.Errorf("decode notice item: %w", err)
	}
	if item.BidNtceNo == "" {
		return entity.Notice{}, fmt.Errorf("notice item has no bidNtceNo")
	}

	ord := item.BidNtceOrd
	if ord == "" {
		ord = entity.DefaultNoticeOrd
	}

	return entity.Notice{
		NoticeNo:       item.BidNtceNo,
		NoticeOrd:      ord,
		Title:          truncate(item.BidNtceNm, maxTitleLen),
		IssuingOrg:     truncate(item.DminsttNm, maxOrgLen),
		RegisteredAt:   ParseCompactTime(item.RgstDt),
		BidOpenAt:      ParseCompactTime(item.BidBeginDt),
		BidCloseAt:     ParseCompactTime(item.BidClseDt),
		OpenedAt:       ParseCompactTime(item.OpengDt),
		EstimatedPrice: parseAmount(string(item.PresmptPrce)),
		BudgetAmount:   parseAmount(string(item.AsignBdgtAmt)),
		BidMethod:      truncate(item.BidMethdNm, maxMethodLen),
		ContractMethod: truncate(item.CntrctCnclsMthdNm, maxMethodLen),
		WorkCategory:   truncate(item.TaskClsfcNm, maxCategoryLen),
	}, nil
}

// AwardFromRaw decodes one upstream record into a storable award.
func AwardFromRaw(raw json.RawMessage) (entity.Award, error) {
	var item awardItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return entity.Award{}, fmt.Errorf("decode award item: %w", err)
	}
	if item.BidNtceNo == "" {
		return entity.Award{}, fmt.Errorf("award item has no bidNtceNo")
	}

	ord := item.BidNtceOrd
	if ord == "" {
		ord = entity.DefaultNoticeOrd
	}

	return entity.Award{
		NoticeNo:       item.BidNtceNo,
		NoticeOrd:      ord,
		OpenedAt:       ParseCompactTime(item.OpengDt),
		CompanyName:    truncate(item.ScsbidCorpNm, maxOrgLen),
		AwardAmount:    parseAmount(string(item.ScsbidAmt)),
		EstimatedPrice: parseAmount(string(item.PresmptPrce)),
		AwardRate:      parseRate(string(item.ScsbidRate)),
		WorkCategory:   truncate(item.TaskClsfcNm, maxCategoryLen),
	}, nil
}

// ParseCompactTime parses the two textual timestamp formats the upstream
// emits: 12-character YYYYMMDDHHMM and 8-character YYYYMMDD. Anything else
// yields nil without error.
func ParseCompactTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	var layout string
	switch len(s) {
	case 12:
		layout = "200601021504"
	case 8:
		layout = "20060102"
	default:
		return nil
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}
	return &t
}

// parseAmount parses an integer amount defensively; non-numeric or absent
// values become nil, never an error.
func parseAmount(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// parseRate parses a percentage rate defensively.
func parseRate(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// truncate limits s to max runes. Column widths are character counts, so
// truncation is by rune, not byte.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
