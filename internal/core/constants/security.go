package constants

const (
	ViolationRateLimit = "rate_limit"
	ViolationSizeLimit = "size_limit"
)
