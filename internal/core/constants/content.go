package constants

const (
	ContentTypeJSON   = "application/json"
	ContentTypeHeader = "Content-Type"

	HeaderAccept        = "Accept"
	HeaderAuthorization = "Authorization"
	HeaderRetryAfter    = "Retry-After"
	HeaderXRequestID    = "X-Request-ID"
	HeaderRelayRequest  = "X-Relay-Request-ID"
	HeaderReferer       = "HTTP-Referer"
	HeaderXTitle        = "X-Title"
)
