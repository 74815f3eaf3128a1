package trakt

import "github.com/televault/televault/internal/domain"

// Endpoints is the declarative catalog of upstream endpoint
// descriptors. The cache core never builds URIs itself; services
// resolve templates from this catalog and hand them to the client.
type Endpoints struct {
	Auth            AuthEndpoints
	Calendars       CalendarEndpoints
	Movies          MovieEndpoints
	Shows           ShowEndpoints
	Users           UserEndpoints
	Sync            SyncEndpoints
	Search          SearchEndpoints
	Recommendations RecommendationEndpoints
}

type AuthEndpoints struct {
	Authorize   domain.Descriptor
	GetToken    domain.Descriptor
	RevokeToken domain.Descriptor
}

type CalendarEndpoints struct {
	Movies          domain.Descriptor
	Shows           domain.Descriptor
	NewShows        domain.Descriptor
	SeasonPremieres domain.Descriptor
	MyShows         domain.Descriptor
}

type MovieEndpoints struct {
	Trending     domain.Descriptor
	Details      domain.Descriptor
	Translations domain.Descriptor
}

type ShowEndpoints struct {
	Trending     domain.Descriptor
	Details      domain.Descriptor
	Translations domain.Descriptor
	Progress     domain.Descriptor
}

type UserEndpoints struct {
	Profile   domain.Descriptor
	Watched   domain.Descriptor
	Watchlist domain.Descriptor
	History   domain.Descriptor
}

type SearchEndpoints struct {
	Text domain.Descriptor
}

type RecommendationEndpoints struct {
	Movies domain.Descriptor
	Shows  domain.Descriptor
}

type SyncEndpoints struct {
	AddToWatchlist      domain.Descriptor
	RemoveFromWatchlist domain.Descriptor
	AddToHistory        domain.Descriptor
}

// DefaultEndpoints returns the catalog for API v2.
func DefaultEndpoints() *Endpoints {
	return &Endpoints{
		Auth: AuthEndpoints{
			Authorize: domain.Descriptor{Method: "GET", URI: "/oauth/authorize"},
			GetToken: domain.Descriptor{
				Method: "POST",
				URI:    "/oauth/token",
				Body:   map[string]any{"grant_type": "authorization_code"},
			},
			RevokeToken: domain.Descriptor{Method: "POST", URI: "/oauth/revoke"},
		},
		Calendars: CalendarEndpoints{
			Movies:          domain.Descriptor{Method: "GET", URI: "/calendars/all/movies/:start_date/:days"},
			Shows:           domain.Descriptor{Method: "GET", URI: "/calendars/all/shows/:start_date/:days"},
			NewShows:        domain.Descriptor{Method: "GET", URI: "/calendars/all/shows/new/:start_date/:days"},
			SeasonPremieres: domain.Descriptor{Method: "GET", URI: "/calendars/all/shows/premieres/:start_date/:days"},
			MyShows:         domain.Descriptor{Method: "GET", URI: "/calendars/my/shows/:start_date/:days"},
		},
		Movies: MovieEndpoints{
			Trending:     domain.Descriptor{Method: "GET", URI: "/movies/trending"},
			Details:      domain.Descriptor{Method: "GET", URI: "/movies/:id"},
			Translations: domain.Descriptor{Method: "GET", URI: "/movies/:id/translations/:language"},
		},
		Shows: ShowEndpoints{
			Trending:     domain.Descriptor{Method: "GET", URI: "/shows/trending"},
			Details:      domain.Descriptor{Method: "GET", URI: "/shows/:id"},
			Translations: domain.Descriptor{Method: "GET", URI: "/shows/:id/translations/:language"},
			Progress:     domain.Descriptor{Method: "GET", URI: "/shows/:id/progress/watched"},
		},
		Users: UserEndpoints{
			Profile:   domain.Descriptor{Method: "GET", URI: "/users/me"},
			Watched:   domain.Descriptor{Method: "GET", URI: "/users/:username/watched/:type"},
			Watchlist: domain.Descriptor{Method: "GET", URI: "/users/:username/watchlist/:type"},
			History:   domain.Descriptor{Method: "GET", URI: "/users/:username/history"},
		},
		Search: SearchEndpoints{
			Text: domain.Descriptor{Method: "GET", URI: "/search/movie,show"},
		},
		Recommendations: RecommendationEndpoints{
			Movies: domain.Descriptor{Method: "GET", URI: "/recommendations/movies"},
			Shows:  domain.Descriptor{Method: "GET", URI: "/recommendations/shows"},
		},
		Sync: SyncEndpoints{
			AddToWatchlist:      domain.Descriptor{Method: "POST", URI: "/sync/watchlist"},
			RemoveFromWatchlist: domain.Descriptor{Method: "POST", URI: "/sync/watchlist/remove"},
			AddToHistory:        domain.Descriptor{Method: "POST", URI: "/sync/history"},
		},
	}
}
