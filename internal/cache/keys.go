package cache

import "fmt"

// WriteGenerationKey holds the counter bumped by every backend write.
// Read keys embed the generation, so a bump orphans every cached page.
const WriteGenerationKey = "headhunter:writegen"

func ProfilePageKey(generation int64, queryHash string) string {
	return fmt.Sprintf("headhunter:profiles:%d:%s", generation, queryHash)
}

func JobsKey(generation int64) string {
	return fmt.Sprintf("headhunter:jobs:%d", generation)
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
