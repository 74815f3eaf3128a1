package domain

// UserProfile is the authenticated user's profile.
type UserProfile struct {
	Username string  `json:"username"`
	Private  bool    `json:"private"`
	Name     *string `json:"name,omitempty"`
	VIP      bool    `json:"vip"`
	IDs      struct {
		Slug string `json:"slug"`
	} `json:"ids"`
	Images Images `json:"images,omitempty"`
}

// WatchedShow is one entry of the user's watched-shows list.
type WatchedShow struct {
	Plays         uint32  `json:"plays"`
	LastWatchedAt *string `json:"last_watched_at"`
	LastUpdatedAt *string `json:"last_updated_at"`
	Show          Show    `json:"show"`
}

// WatchlistItem is one entry of the user's watchlist.
type WatchlistItem struct {
	ListedAt string   `json:"listed_at"`
	Movie    *Movie   `json:"movie,omitempty"`
	Show     *Show    `json:"show,omitempty"`
	Episode  *Episode `json:"episode,omitempty"`
}

// HistoryItem is one entry of the user's watch history.
type HistoryItem struct {
	ID        uint64   `json:"id"`
	WatchedAt string   `json:"watched_at"`
	ItemType  string   `json:"type"`
	Movie     *Movie   `json:"movie,omitempty"`
	Show      *Show    `json:"show,omitempty"`
	Episode   *Episode `json:"episode,omitempty"`
}

// ShowProgress is the upstream watched-progress report for a show.
type ShowProgress struct {
	Aired         uint32   `json:"aired"`
	Completed     uint32   `json:"completed"`
	LastWatchedAt *string  `json:"last_watched_at"`
	NextEpisode   *Episode `json:"next_episode"`
}

// ShowProgressSummary is the compact progress view embedded in an
// UpNextItem.
type ShowProgressSummary struct {
	Aired         uint32  `json:"aired"`
	Completed     uint32  `json:"completed"`
	LastWatchedAt *string `json:"last_watched_at"`
}

// UpNextItem pairs a partially-watched show with its next episode.
type UpNextItem struct {
	Show        Show                `json:"show"`
	NextEpisode Episode             `json:"next_episode"`
	Progress    ShowProgressSummary `json:"progress"`
}
