package posts

import "strings"

const (
	excerptMaxLen       = 200
	wordsPerMinute      = 200
	minReadingTimeInMin = 1
)

// DeriveExcerpt takes the first 200 characters of the content, truncated on
// a word boundary. Used when the author did not provide an excerpt.
func DeriveExcerpt(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= excerptMaxLen {
		return content
	}

	cut := content[:excerptMaxLen]
	if lastSpace := strings.LastIndexAny(cut, " \t\n"); lastSpace > 0 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(cut) + "…"
}

// DeriveReadingTime estimates reading time in minutes at 200 words per
// minute, rounded up, never below one minute.
func DeriveReadingTime(content string) int {
	words := len(strings.Fields(content))
	if words == 0 {
		return minReadingTimeInMin
	}
	readingTime := (words + wordsPerMinute - 1) / wordsPerMinute
	if readingTime < minReadingTimeInMin {
		return minReadingTimeInMin
	}
	return readingTime
}
