package domain

// BuildEntryCacheKey is the cache key remembering a committed entry id.
func BuildEntryCacheKey(entryID string) string {
	return "entry:" + entryID
}

// BuildNonceKey scopes a signing nonce to its sender.
func BuildNonceKey(senderID, nonce string) string {
	return "nonce:" + senderID + ":" + nonce
}
