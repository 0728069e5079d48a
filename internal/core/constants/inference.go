package constants

import "time"

const (
	// DefaultLocalTimeout bounds a single local model call
	DefaultLocalTimeout = 180 * time.Second
	// DefaultCloudTimeout bounds a single cloud API call
	DefaultCloudTimeout = 180 * time.Second
	// DefaultClientTimeout is how long the assistant waits for the gateway
	DefaultClientTimeout = 300 * time.Second

	DefaultRetrievalK = 15

	DefaultCloudBaseURL  = "https://openrouter.ai/api/v1"
	DefaultCloudKeyEnv   = "OPENROUTER_API_KEY"
	DefaultGatewayURL    = "http://127.0.0.1:8000"
	DefaultLocalModelDir = "~/.cache/instructlab/models"
	DefaultRunnerBinary  = "llama-cli"

	LocalModelExtension = ".gguf"

	// BackendErrorSnippet caps how much of an upstream error body is echoed back
	BackendErrorSnippet = 512
)

// DefaultLocalStopSequences are appended to every local call's stop list
var DefaultLocalStopSequences = []string{"[/INST]", "</s>"}
