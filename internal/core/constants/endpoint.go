package constants

const (
	DefaultHealthCheckEndpoint = "/internal/health"
	DefaultStatusEndpoint      = "/internal/status/services"
	DefaultStatsEndpoint       = "/internal/stats/services"
	DefaultProcessEndpoint     = "/internal/process"
	DefaultVersionEndpoint     = "/version"

	PathSummarize = "/summarize"
	PathGenerate  = "/generate"

	// relative to the cloud base url
	PathChatCompletions = "/chat/completions"
	PathEmbeddings      = "/embeddings"
)
