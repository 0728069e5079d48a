package assistant

/*
	Pipeline runs one RAG turn: retrieve, optionally summarize, generate.
	The two gateway calls are sequential and independent. By default a
	failed summary is forwarded into the generation prompt as-is (it is an
	ERROR string) and a warning is logged; StopOnSummaryError ends the turn
	with the summary error instead.
*/

import (
	"context"
	"fmt"

	"github.com/mineradorx/relay/internal/adapter/vectorstore"
	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/logger"
)

const NoDocumentsMessage = "No relevant documents were found for this question."

// Caller is the slice of GatewayClient the pipeline needs
type Caller interface {
	Do(ctx context.Context, endpoint, prompt string) CallResult
}

// Asker answers one user turn, both chat modes implement it
type Asker interface {
	Ask(ctx context.Context, question string) Answer
}

type Answer struct {
	Text       string
	Summary    string
	Passages   int
	Summarized bool
	Failed     bool
}

type PipelineOptions struct {
	TopK               int
	Summarize          bool
	StopOnSummaryError bool
}

type Pipeline struct {
	client  Caller
	store   vectorstore.Store
	prompts *Templates
	logger  *logger.StyledLogger
	opts    PipelineOptions
}

func NewPipeline(client Caller, store vectorstore.Store, prompts *Templates, opts PipelineOptions, logger *logger.StyledLogger) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = constants.DefaultRetrievalK
	}
	return &Pipeline{
		client:  client,
		store:   store,
		prompts: prompts,
		opts:    opts,
		logger:  logger,
	}
}

func (p *Pipeline) Ask(ctx context.Context, question string) Answer {
	passages, err := p.store.SimilaritySearch(ctx, question, p.opts.TopK)
	if err != nil {
		p.logger.Warn("Retrieval failed", "error", err)
		return Answer{Text: fmt.Sprintf("%s: retrieval failed: %v", ErrorPrefix, err), Failed: true}
	}

	retrieved := domain.RetrievedContext(passages)
	if retrieved.IsEmpty() {
		return Answer{Text: NoDocumentsMessage}
	}

	answer := Answer{Passages: len(retrieved)}
	promptContext := retrieved.Join()

	if p.opts.Summarize {
		prompt, err := p.prompts.Render(TemplateSummarization, map[string]string{
			"question":     question,
			"full_context": promptContext,
		})
		if err != nil {
			return Answer{Text: fmt.Sprintf("%s: %v", ErrorPrefix, err), Passages: len(retrieved), Failed: true}
		}

		summary := p.client.Do(ctx, EndpointSummarize, prompt)
		answer.Summarized = true
		answer.Summary = summary.Text

		if summary.Failed() {
			if p.opts.StopOnSummaryError {
				answer.Text = summary.Text
				answer.Failed = true
				return answer
			}
			p.logger.Warn("Summary failed, its error text is being used as the context",
				"request_id", summary.RequestID, "kind", summary.Kind)
		}
		promptContext = summary.Text
	}

	prompt, err := p.prompts.Render(TemplateRAGGeneration, map[string]string{
		"context":  promptContext,
		"question": question,
	})
	if err != nil {
		answer.Text = fmt.Sprintf("%s: %v", ErrorPrefix, err)
		answer.Failed = true
		return answer
	}

	result := p.client.Do(ctx, EndpointGenerate, prompt)
	answer.Text = result.Text
	answer.Failed = result.Failed()
	return answer
}

const directTemplateName = "direct"

const directChatTemplate = "You are a helpful AI assistant. Answer the user's question.\n\nQUESTION: {question}\n\nANSWER:"

// DirectChat skips retrieval and always calls generate
type DirectChat struct {
	client  Caller
	prompts *Templates
}

func NewDirectChat(client Caller) *DirectChat {
	return &DirectChat{
		client: client,
		prompts: NewTemplates(map[string]PromptTemplate{
			directTemplateName: {Template: directChatTemplate},
		}),
	}
}

func (d *DirectChat) Ask(ctx context.Context, question string) Answer {
	prompt, err := d.prompts.Render(directTemplateName, map[string]string{"question": question})
	if err != nil {
		return Answer{Text: fmt.Sprintf("%s: %v", ErrorPrefix, err), Failed: true}
	}
	result := d.client.Do(ctx, EndpointGenerate, prompt)
	return Answer{Text: result.Text, Failed: result.Failed()}
}
