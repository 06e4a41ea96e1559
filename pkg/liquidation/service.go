package liquidation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agroline/fieldops/pkg/cache"
	"github.com/agroline/fieldops/pkg/visibility"
)

// summaryTTL bounds how stale a cached dashboard summary may be.
const summaryTTL = 5 * time.Minute

// Service serves liquidation reads trimmed to the caller's visibility scope.
// Summaries are cached per viewer in a bounded LRU since every role sees a
// different slice of the data.
type Service struct {
	store     *Store
	summaries *cache.Bounded
}

func NewService(store *Store) *Service {
	return &Service{
		store:     store,
		summaries: cache.NewBounded(512, summaryTTL),
	}
}

// Record stores a snapshot and drops cached summaries, which may now be stale
// for any viewer.
func (s *Service) Record(ctx context.Context, e *Entry) error {
	if err := s.store.Upsert(ctx, e); err != nil {
		return err
	}
	s.summaries.Purge()
	return nil
}

// Entries returns the snapshots the user is allowed to see. subordinateIDs
// are the viewer's direct reports; only the TSM visibility rule consults them.
func (s *Service) Entries(ctx context.Context, user visibility.UserContext, subordinateIDs []string) ([]Entry, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	visible := visibility.FilterEntries(VisibilityEntries(all), user, subordinateIDs)
	allowed := make(map[string]bool, len(visible))
	for _, v := range visible {
		allowed[v.ID] = true
	}
	out := make([]Entry, 0, len(visible))
	for _, e := range all {
		if allowed[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

// Summary aggregates the user's visible snapshots. Results are cached per
// viewer identity and scope for a short window.
func (s *Service) Summary(ctx context.Context, user visibility.UserContext, subordinateIDs []string) (visibility.Summary, error) {
	key := summaryKey(user, subordinateIDs)
	if v, ok := s.summaries.Get(key); ok {
		if cached, ok := v.(visibility.Summary); ok {
			return cached, nil
		}
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return visibility.Summary{}, err
	}
	summary := visibility.Aggregate(VisibilityEntries(all), user, subordinateIDs)
	s.summaries.Set(key, summary)
	return summary, nil
}

func summaryKey(user visibility.UserContext, subordinateIDs []string) string {
	return fmt.Sprintf("summary:%s:%s:%s:%s:%s:%s",
		user.ID, user.Role, user.Territory, user.State, user.Zone,
		strings.Join(subordinateIDs, ","))
}
