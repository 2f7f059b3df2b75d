package analytics

import (
	"context"
	"fmt"
	"time"

	"spamwarden/internal/storage"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

const reportTTL = time.Minute

// Service aggregates audit rows into per-guild reports. Reports are
// cached briefly and builds are deduplicated, so a busy log channel
// cannot hammer sqlite with identical scans.
type Service struct {
	store *storage.Store
	cache *ristretto.Cache
	group singleflight.Group
}

func New(store *storage.Store) (*Service, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("report cache: %w", err)
	}
	return &Service{store: store, cache: cache}, nil
}

func (s *Service) Close() {
	s.cache.Close()
}

type Report struct {
	Total       int
	ByLevel     map[string]int
	ByDetection map[string]int
	TopUsers    []UserCount
}

type UserCount struct {
	UserID string
	Count  int
}

func (s *Service) Report(ctx context.Context, guildID string, window time.Duration) (Report, error) {
	key := fmt.Sprintf("%s:%d", guildID, int64(window.Seconds()))
	if cached, found := s.cache.Get(key); found {
		return cached.(Report), nil
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		return s.build(ctx, guildID, window)
	})
	if err != nil {
		return Report{}, err
	}

	report := value.(Report)
	s.cache.SetWithTTL(key, report, 1, reportTTL)
	return report, nil
}

func (s *Service) build(ctx context.Context, guildID string, window time.Duration) (Report, error) {
	logs, err := s.store.ListAuditLogs(ctx, guildID, time.Now().Add(-window))
	if err != nil {
		return Report{}, err
	}

	report := Report{
		ByLevel:     make(map[string]int),
		ByDetection: make(map[string]int),
	}
	perUser := make(map[string]int)
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		report.ByDetection[log.Event]++
		if log.UserID != "" {
			perUser[log.UserID]++
		}
	}
	report.TopUsers = topUsers(perUser, 5)
	return report, nil
}

func topUsers(perUser map[string]int, limit int) []UserCount {
	users := make([]UserCount, 0, len(perUser))
	for userID, count := range perUser {
		users = append(users, UserCount{UserID: userID, Count: count})
	}
	// insertion sort, the list is tiny
	for i := 1; i < len(users); i++ {
		for j := i; j > 0 && users[j].Count > users[j-1].Count; j-- {
			users[j], users[j-1] = users[j-1], users[j]
		}
	}
	if len(users) > limit {
		users = users[:limit]
	}
	return users
}
