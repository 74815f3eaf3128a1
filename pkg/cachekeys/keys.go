// Package cachekeys builds the composite keys used across the cache
// categories. Keys are "{type}_{id}"-style delimited strings; callers
// must not embed the delimiter in an identifier segment.
package cachekeys

import "fmt"

// MediaKey is the media_cache key for one title: e.g. "movie_12345".
func MediaKey(mediaType string, traktID uint32) string {
	return fmt.Sprintf("%s_%d", mediaType, traktID)
}

// TranslationKey is the translation_cache key for one title and language.
func TranslationKey(mediaType string, traktID uint32, language string) string {
	return fmt.Sprintf("%s_%d_%s", mediaType, traktID, language)
}

// CalendarDayKey is the user_data_cache key for one calendar day
// bucket: e.g. "calendar_shows_2024-01-01".
func CalendarDayKey(prefix, day string) string {
	return fmt.Sprintf("%s_%s", prefix, day)
}

// ResponseKey is the api_response_cache key for a whole list
// response: e.g. "trending_movies_p1".
func ResponseKey(endpoint string, page int) string {
	return fmt.Sprintf("%s_p%d", endpoint, page)
}

// UserKey is the user_data_cache key for a per-user resource:
// e.g. "watchlist_movies_alice".
func UserKey(resource, username string) string {
	return fmt.Sprintf("%s_%s", resource, username)
}

// UpNextKey is the user_data_cache key for one page of up-next
// scanning results.
func UpNextKey(username string, page int) string {
	return fmt.Sprintf("up_next_%s_p%d", username, page)
}
