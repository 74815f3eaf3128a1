package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/televault/televault/internal/adapters/metrics"
	"github.com/televault/televault/internal/adapters/trakt"
	"github.com/televault/televault/internal/domain"
	"github.com/televault/televault/pkg/cachekeys"
	"github.com/televault/televault/pkg/contextkeys"
	"github.com/televault/televault/pkg/safego"
)

const dayFormat = "2006-01-02"

// calendarPageLimit mirrors the upstream page size used for calendar
// windows; a single page covers any reasonable desktop request.
const calendarPageLimit = 100

// FetchDescriptor names the upstream endpoint and per-item
// date-extraction rule for one calendar kind. The reconciler itself
// stays ignorant of endpoint shapes.
type FetchDescriptor struct {
	// Prefix scopes the per-day cache keys, e.g. "calendar_shows".
	Prefix string
	// Endpoint is the URI template with :start_date and :days holes.
	Endpoint domain.Descriptor
	// DateOf extracts the item's own calendar date (YYYY-MM-DD).
	DateOf func(item json.RawMessage) string
}

// dayState is the per-day probe outcome used for run collection.
type dayState struct {
	day       string
	freshness domain.Freshness
	items     []json.RawMessage
}

// run is a maximal contiguous sequence of days sharing a
// classification, fetched with one upstream call.
type run struct {
	start  string
	days   []string
	length int
}

// CalendarService is the range reconciler: it decomposes a multi-day
// calendar request into fresh, stale and missing day buckets against
// the cache, fetches only the missing runs, refreshes stale runs in
// the background and reassembles one date-ordered result.
type CalendarService struct {
	cache     domain.CachePolicy
	client    domain.UpstreamClient
	publisher domain.EventPublisher
	endpoints *trakt.Endpoints
	logger    domain.Logger
}

// NewCalendarService creates the reconciler.
func NewCalendarService(cache domain.CachePolicy, client domain.UpstreamClient, publisher domain.EventPublisher, endpoints *trakt.Endpoints, logger domain.Logger) *CalendarService {
	return &CalendarService{
		cache:     cache,
		client:    client,
		publisher: publisher,
		endpoints: endpoints,
		logger:    logger,
	}
}

// Movies returns the movie-release calendar for the window.
func (s *CalendarService) Movies(ctx context.Context, startDate string, days int) ([]domain.CalendarMovie, error) {
	items, err := s.Reconcile(ctx, startDate, days, FetchDescriptor{
		Prefix:   "calendar_movies",
		Endpoint: s.endpoints.Calendars.Movies,
		DateOf:   movieDate,
	})
	if err != nil {
		return nil, err
	}
	return decodeItems[domain.CalendarMovie](items)
}

// Shows returns the episode-airing calendar for the window.
func (s *CalendarService) Shows(ctx context.Context, startDate string, days int) ([]domain.CalendarShow, error) {
	items, err := s.Reconcile(ctx, startDate, days, FetchDescriptor{
		Prefix:   "calendar_shows",
		Endpoint: s.endpoints.Calendars.Shows,
		DateOf:   showDate,
	})
	if err != nil {
		return nil, err
	}
	return decodeItems[domain.CalendarShow](items)
}

// NewShows returns the series-premiere calendar for the window.
func (s *CalendarService) NewShows(ctx context.Context, startDate string, days int) ([]domain.CalendarShow, error) {
	items, err := s.Reconcile(ctx, startDate, days, FetchDescriptor{
		Prefix:   "calendar_new_shows",
		Endpoint: s.endpoints.Calendars.NewShows,
		DateOf:   showDate,
	})
	if err != nil {
		return nil, err
	}
	return decodeItems[domain.CalendarShow](items)
}

// Premieres returns the season-premiere calendar for the window.
func (s *CalendarService) Premieres(ctx context.Context, startDate string, days int) ([]domain.CalendarShow, error) {
	items, err := s.Reconcile(ctx, startDate, days, FetchDescriptor{
		Prefix:   "calendar_premieres",
		Endpoint: s.endpoints.Calendars.SeasonPremieres,
		DateOf:   showDate,
	})
	if err != nil {
		return nil, err
	}
	return decodeItems[domain.CalendarShow](items)
}

// MyShows returns the authenticated user's show calendar.
func (s *CalendarService) MyShows(ctx context.Context, startDate string, days int) ([]domain.CalendarShow, error) {
	items, err := s.Reconcile(ctx, startDate, days, FetchDescriptor{
		Prefix:   "calendar_my_shows",
		Endpoint: s.endpoints.Calendars.MyShows,
		DateOf:   showDate,
	})
	if err != nil {
		return nil, err
	}
	return decodeItems[domain.CalendarShow](items)
}

// Reconcile runs the range reconciliation algorithm and returns the
// merged item list, sorted by date ascending (stable; ties keep fetch
// order). A failed fetch for any missing run aborts the whole call;
// stale-run refreshes run detached and their failures are swallowed.
func (s *CalendarService) Reconcile(ctx context.Context, startDate string, days int, desc FetchDescriptor) ([]json.RawMessage, error) {
	start, err := time.Parse(dayFormat, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	if days <= 0 {
		return nil, fmt.Errorf("invalid day count %d", days)
	}

	// Probe and classify every day in the window.
	states := make([]dayState, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(dayFormat)
		states[i] = s.probeDay(ctx, desc, day)
	}

	missingRuns := collectRuns(states, domain.Absent)
	staleRuns := collectRuns(states, domain.Stale)

	s.logger.Debug(ctx, "Calendar window classified",
		"prefix", desc.Prefix, "start", startDate, "days", days,
		"missing_runs", len(missingRuns), "stale_runs", len(staleRuns))

	// Missing runs block the response: fetch them now, one upstream
	// call per run.
	fetched := make(map[string][]json.RawMessage, days)
	for _, r := range missingRuns {
		buckets, err := s.fetchRun(ctx, desc, r)
		if err != nil {
			return nil, err
		}
		for day, items := range buckets {
			fetched[day] = items
		}
	}

	// Stale runs are already answerable; refresh them after the fact.
	for _, r := range staleRuns {
		s.scheduleRunRefresh(ctx, desc, r)
	}

	// Merge: fresh + stale payloads as cached, missing days as fetched.
	var merged []json.RawMessage
	for _, st := range states {
		switch st.freshness {
		case domain.Fresh, domain.Stale:
			merged = append(merged, st.items...)
		default:
			merged = append(merged, fetched[st.day]...)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return desc.DateOf(merged[i]) < desc.DateOf(merged[j])
	})
	return merged, nil
}

// probeDay classifies one day bucket. A stored payload that fails to
// decode is treated as missing and evicted, so it gets re-fetched.
func (s *CalendarService) probeDay(ctx context.Context, desc FetchDescriptor, day string) dayState {
	key := cachekeys.CalendarDayKey(desc.Prefix, day)
	result := s.cache.Get(ctx, domain.CategoryUserData, key)
	if result.Freshness == domain.Absent {
		return dayState{day: day, freshness: domain.Absent}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(result.Payload, &items); err != nil {
		s.logger.Warn(ctx, "Stored calendar day is malformed, refetching", "key", key, "error", err.Error())
		s.cache.Delete(ctx, domain.CategoryUserData, key)
		return dayState{day: day, freshness: domain.Absent}
	}
	return dayState{day: day, freshness: result.Freshness, items: items}
}

// fetchRun issues one upstream call for a contiguous day run, groups
// the returned items into per-day buckets and persists every day of
// the run, including confirmed-empty days, so a quiet day is not
// re-derived as missing on the next read.
func (s *CalendarService) fetchRun(ctx context.Context, desc FetchDescriptor, r run) (map[string][]json.RawMessage, error) {
	uri := desc.Endpoint.Expand(map[string]string{
		"start_date": r.start,
		"days":       strconv.Itoa(r.length),
	})
	metrics.IncrementReconcilerFetch()
	raw, err := s.client.Request(ctx, desc.Endpoint.Method, uri, &domain.RequestOptions{
		Limit:  calendarPageLimit,
		Page:   1,
		Images: true,
	})
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if raw != nil {
		if uerr := json.Unmarshal(raw, &items); uerr != nil {
			return nil, domain.NewStatusError(http.StatusInternalServerError, fmt.Errorf("%w: calendar response: %v", domain.ErrParse, uerr))
		}
	}

	buckets := make(map[string][]json.RawMessage, r.length)
	for _, day := range r.days {
		buckets[day] = []json.RawMessage{}
	}
	for _, item := range items {
		// Undated items land on the run start; items dated outside
		// the run window keep their own day bucket.
		day := desc.DateOf(item)
		if day == "" {
			day = r.start
		}
		if _, ok := buckets[day]; !ok {
			buckets[day] = []json.RawMessage{}
		}
		buckets[day] = append(buckets[day], item)
	}

	for day, dayItems := range buckets {
		payload, merr := json.Marshal(dayItems)
		if merr != nil {
			s.logger.Error(ctx, "Failed to encode calendar day bucket", "day", day, "error", merr.Error())
			continue
		}
		s.cache.Put(ctx, domain.CategoryUserData, cachekeys.CalendarDayKey(desc.Prefix, day), payload)
	}
	return buckets, nil
}

// scheduleRunRefresh repeats the fetch-and-persist steps for a stale
// run in a detached task, then publishes one data-updated
// notification per refreshed day. Failures are logged and swallowed:
// the caller already got usable data.
func (s *CalendarService) scheduleRunRefresh(ctx context.Context, desc FetchDescriptor, r run) {
	taskCtx := context.WithValue(context.WithoutCancel(ctx), contextkeys.TaskIDKey, uuid.NewString())
	safego.Execute(taskCtx, s.logger, "CalendarRunRefresh", func() {
		buckets, err := s.fetchRun(taskCtx, desc, r)
		if err != nil {
			metrics.IncrementRevalidation("failure")
			s.logger.Warn(taskCtx, "Background calendar refresh failed",
				"prefix", desc.Prefix, "start", r.start, "days", r.length, "error", err.Error())
			return
		}
		metrics.IncrementRevalidation("success")
		for day, items := range buckets {
			key := cachekeys.CalendarDayKey(desc.Prefix, day)
			if perr := s.publisher.PublishDataUpdated(taskCtx, key, items); perr != nil {
				s.logger.Warn(taskCtx, "Failed to publish calendar update", "key", key, "error", perr.Error())
			}
		}
	})
}

// collectRuns gathers the maximal contiguous runs of days in the
// given state. Days in any other state break the run: a day belongs
// to exactly one bucket.
func collectRuns(states []dayState, target domain.Freshness) []run {
	var runs []run
	var current *run
	for i := range states {
		if states[i].freshness != target {
			current = nil
			continue
		}
		if current == nil {
			runs = append(runs, run{start: states[i].day})
			current = &runs[len(runs)-1]
		}
		current.days = append(current.days, states[i].day)
		current.length++
	}
	return runs
}

func decodeItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := decodeInto[T](item)
		if err != nil {
			return nil, fmt.Errorf("%w: calendar item: %v", domain.ErrParse, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func movieDate(item json.RawMessage) string {
	var m domain.CalendarMovie
	if err := json.Unmarshal(item, &m); err != nil {
		return ""
	}
	return m.CalendarDate()
}

func showDate(item json.RawMessage) string {
	var s domain.CalendarShow
	if err := json.Unmarshal(item, &s); err != nil {
		return ""
	}
	return s.CalendarDate()
}
