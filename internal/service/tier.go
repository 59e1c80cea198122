package service

// Subscription tiers. Tier resolution happens outside this process; the
// already-resolved value is passed in with each request.
const (
	TierFree = "free"
	TierPro  = "pro"
)

// Authorize reports whether a tier may use the generator-backed flow.
// Anything that is not exactly "pro", including malformed or missing
// values, is treated as free and rejected.
func Authorize(tier string) bool {
	return tier == TierPro
}
