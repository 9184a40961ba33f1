package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"aihealth.app/health-assistant/internal/store"
)

const (
	DailyUsageDays = 14
	TopDomainLimit = 10
)

// Warehouse answers the snapshot queries from an analytics database.
type Warehouse interface {
	DailyUsage(ctx context.Context, days int) ([]store.DailyUsage, error)
	TopDomains(ctx context.Context, limit int) ([]store.DomainCount, error)
}

type KPIs struct {
	TotalEvents int64 `json:"totalEvents"`
	AvgLatency  int64 `json:"avgLatency"`
}

type Snapshot struct {
	KPIs       KPIs                `json:"kpis"`
	DailyUsage []store.DailyUsage  `json:"dailyUsage"`
	TopDomains []store.DomainCount `json:"topDomains"`
}

type AnalyticsService struct {
	repo      store.Repository
	warehouse Warehouse // optional
	now       func() time.Time
}

func NewAnalyticsService(repo store.Repository, wh Warehouse) *AnalyticsService {
	return &AnalyticsService{
		repo:      repo,
		warehouse: wh,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *AnalyticsService) Snapshot(ctx context.Context) (*Snapshot, error) {
	var (
		daily   []store.DailyUsage
		domains []store.DomainCount
		err     error
	)
	if s.warehouse != nil {
		if daily, err = s.warehouse.DailyUsage(ctx, DailyUsageDays); err != nil {
			return nil, fmt.Errorf("warehouse daily usage query failed: %w", err)
		}
		if domains, err = s.warehouse.TopDomains(ctx, TopDomainLimit); err != nil {
			return nil, fmt.Errorf("warehouse top domains query failed: %w", err)
		}
	} else {
		if daily, err = s.localDailyUsage(ctx); err != nil {
			return nil, err
		}
		if domains, err = s.localTopDomains(ctx); err != nil {
			return nil, err
		}
	}

	if daily == nil {
		daily = []store.DailyUsage{}
	}
	if domains == nil {
		domains = []store.DomainCount{}
	}
	return &Snapshot{KPIs: ComputeKPIs(daily), DailyUsage: daily, TopDomains: domains}, nil
}

// ComputeKPIs sums daily events and averages the daily mean latencies,
// rounded to the nearest millisecond.
func ComputeKPIs(daily []store.DailyUsage) KPIs {
	var k KPIs
	if len(daily) == 0 {
		return k
	}
	var latencySum float64
	for _, d := range daily {
		k.TotalEvents += d.Events
		latencySum += d.AvgLatency
	}
	k.AvgLatency = int64(math.Round(latencySum / float64(len(daily))))
	return k
}

// localDailyUsage groups the last DailyUsageDays days of events by UTC date,
// newest day first.
func (s *AnalyticsService) localDailyUsage(ctx context.Context) ([]store.DailyUsage, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(DailyUsageDays - 1))

	events, err := s.repo.EventsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for analytics: %w", err)
	}

	type agg struct {
		count   int64
		latency int64
	}
	byDay := make(map[string]*agg)
	for _, e := range events {
		d := e.CreatedAt.UTC().Format("2006-01-02")
		a, ok := byDay[d]
		if !ok {
			a = &agg{}
			byDay[d] = a
		}
		a.count++
		a.latency += e.LatencyMS
	}

	out := make([]store.DailyUsage, 0, len(byDay))
	for d, a := range byDay {
		out = append(out, store.DailyUsage{
			D:          d,
			Events:     a.count,
			AvgLatency: float64(a.latency) / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].D > out[j].D })
	return out, nil
}

func (s *AnalyticsService) localTopDomains(ctx context.Context) ([]store.DomainCount, error) {
	sources, err := s.repo.SourcesSince(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load sources for analytics: %w", err)
	}

	counts := make(map[string]int64)
	for _, src := range sources {
		counts[src.Domain]++
	}
	out := make([]store.DomainCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, store.DomainCount{Domain: d, C: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].C != out[j].C {
			return out[i].C > out[j].C
		}
		return out[i].Domain < out[j].Domain
	})
	if len(out) > TopDomainLimit {
		out = out[:TopDomainLimit]
	}
	return out, nil
}
