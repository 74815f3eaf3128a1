package domain

// Images holds the poster/fanart URL sets attached by the upstream
// when extended=images is requested. Shapes vary per endpoint, so the
// lists stay generic.
type Images struct {
	Fanart []string `json:"fanart,omitempty"`
	Poster []string `json:"poster,omitempty"`
	Logo   []string `json:"logo,omitempty"`
	Banner []string `json:"banner,omitempty"`
	Thumb  []string `json:"thumb,omitempty"`
}

// MovieIDs is the upstream identifier set for a movie.
type MovieIDs struct {
	Trakt uint32 `json:"trakt"`
	Slug  string `json:"slug"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  uint32 `json:"tmdb,omitempty"`
}

// Movie is the compact movie shape embedded in lists and calendars.
type Movie struct {
	Title  string   `json:"title"`
	Year   uint32   `json:"year"`
	IDs    MovieIDs `json:"ids"`
	Images Images   `json:"images,omitempty"`
}

// ShowIDs is the upstream identifier set for a show.
type ShowIDs struct {
	Trakt uint32  `json:"trakt"`
	Slug  string  `json:"slug"`
	TVDB  *uint32 `json:"tvdb,omitempty"`
	IMDB  *string `json:"imdb,omitempty"`
	TMDB  *uint32 `json:"tmdb,omitempty"`
}

// Show is the compact show shape embedded in lists and calendars.
type Show struct {
	Title  string  `json:"title"`
	Year   *uint32 `json:"year,omitempty"`
	IDs    ShowIDs `json:"ids"`
	Images Images  `json:"images,omitempty"`
}

// EpisodeIDs is the upstream identifier set for an episode.
type EpisodeIDs struct {
	Trakt uint32  `json:"trakt"`
	TVDB  *uint32 `json:"tvdb,omitempty"`
	IMDB  *string `json:"imdb,omitempty"`
	TMDB  *uint32 `json:"tmdb,omitempty"`
}

// Episode is a single episode of a show.
type Episode struct {
	Season uint32     `json:"season"`
	Number uint32     `json:"number"`
	Title  string     `json:"title"`
	IDs    EpisodeIDs `json:"ids"`
}

// TrendingMovie is one entry of the trending-movies list.
type TrendingMovie struct {
	Watchers uint32 `json:"watchers"`
	Movie    Movie  `json:"movie"`
}

// TrendingShow is one entry of the trending-shows list.
type TrendingShow struct {
	Watchers uint32 `json:"watchers"`
	Show     Show   `json:"show"`
}

// SearchResult is one hit of the text search endpoint. Type names the
// kind of entity; exactly one of Movie and Show is populated.
type SearchResult struct {
	Type  string  `json:"type"`
	Score float64 `json:"score"`
	Movie *Movie  `json:"movie,omitempty"`
	Show  *Show   `json:"show,omitempty"`
}

// RecommendedMovie is one entry of the personalized movie
// recommendations list.
type RecommendedMovie struct {
	Title  string   `json:"title"`
	Year   uint32   `json:"year"`
	IDs    MovieIDs `json:"ids"`
	Images Images   `json:"images,omitempty"`
}

// RecommendedShow is one entry of the personalized show
// recommendations list.
type RecommendedShow struct {
	Title       string        `json:"title"`
	Year        uint32        `json:"year"`
	FavoritedBy []UserProfile `json:"favorited_by,omitempty"`
	IDs         ShowIDs       `json:"ids"`
	Images      Images        `json:"images,omitempty"`
}

// Translation is a localized title/overview/tagline triple for a
// media entity. All fields are optional; absent translations are
// cached too so a missing language is not re-fetched for a week.
type Translation struct {
	Title    *string `json:"title"`
	Overview *string `json:"overview"`
	Tagline  *string `json:"tagline"`
}
