package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

const (
	reportKeyPrefix      = "report:"
	reportIndexKeyPrefix = "report:index:"

	DefaultReportTTL   = 30 * 24 * time.Hour
	DefaultReportLimit = 20
)

// ReportStore keeps the latest final reports of each user. Every report is
// a JSON string; a per-user list indexes them newest first and is trimmed
// to the limit.
type ReportStore struct {
	client redis.Cmdable
	ttl    time.Duration
	limit  int
}

var _ domain.ReportStorePort = (*ReportStore)(nil)

// NewReportStore uses the defaults for a non-positive ttl or limit
func NewReportStore(client redis.Cmdable, ttl time.Duration, limit int) *ReportStore {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	if limit <= 0 {
		limit = DefaultReportLimit
	}
	return &ReportStore{client: client, ttl: ttl, limit: limit}
}

// SaveReport stores a report and pushes it on the user's history
func (s *ReportStore) SaveReport(ctx context.Context, report domain.FinalReport) error {
	if report.ID == "" || report.UserID == "" {
		return errors.New("save report: report id and user id are required")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	index := indexKey(report.UserID)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, reportKey(report.UserID, report.ID), data, s.ttl)
		p.LPush(ctx, index, report.ID)
		p.LTrim(ctx, index, 0, int64(s.limit-1))
		p.Expire(ctx, index, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// GetReport returns domain.ErrNotFound for unknown or expired reports
func (s *ReportStore) GetReport(ctx context.Context, userID, reportID string) (*domain.FinalReport, error) {
	data, err := s.client.Get(ctx, reportKey(userID, reportID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get report %s: %w", reportID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return decodeReport(data)
}

// ListReports returns up to limit reports, newest first. Expired entries
// still in the index are skipped.
func (s *ReportStore) ListReports(ctx context.Context, userID string, limit int) ([]*domain.FinalReport, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	ids, err := s.client.LRange(ctx, indexKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list report ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = reportKey(userID, id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get reports: %w", err)
	}

	reports := make([]*domain.FinalReport, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decodeReport([]byte(str))
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func decodeReport(data []byte) (*domain.FinalReport, error) {
	var r domain.FinalReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

func reportKey(userID, reportID string) string {
	return reportKeyPrefix + userID + ":" + reportID
}

func indexKey(userID string) string {
	return reportIndexKeyPrefix + userID
}
