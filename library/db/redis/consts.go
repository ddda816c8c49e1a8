package redis

const (
	keyPrefix          = "laisky-forum/"
	keyPrefixTask      = keyPrefix + "tasks/"
	keyPrefixRateLimit = keyPrefix + "ratelimit/"

	// KeyTaskFileRemoval is the queue of files waiting to be deleted from object storage
	KeyTaskFileRemoval = keyPrefixTask + "file_removal"
)

// RateLimitKey builds the counter key for a rate limit bucket
func RateLimitKey(parts ...string) string {
	key := keyPrefixRateLimit
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}

	return key
}
