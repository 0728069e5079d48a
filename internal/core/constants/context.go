package constants

const (
	ContextRequestIdKey   = "request_id"   // set by the logging middleware for each request
	ContextRequestTimeKey = "request_time" // when the request reached the gateway
	ContextServiceKey     = "service"      // logical service resolved for the request
)
