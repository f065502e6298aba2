package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/apperrors"
	"github.com/nlquery/nlq-engine/pkg/config"
	"github.com/nlquery/nlq-engine/pkg/glossary"
	"github.com/nlquery/nlq-engine/pkg/intent"
	"github.com/nlquery/nlq-engine/pkg/metrics"
	"github.com/nlquery/nlq-engine/pkg/models"
	"github.com/nlquery/nlq-engine/pkg/schema"
)

// Executor runs validated queries against the metrics service.
type Executor interface {
	Load(ctx context.Context, query *models.StructuredQuery) ([]map[string]any, error)
	SQL(ctx context.Context, query *models.StructuredQuery) (string, error)
}

// RecordFetcher serves detail and list intents from the record service.
type RecordFetcher interface {
	GetRecord(ctx context.Context, key string) (map[string]any, error)
	GetComments(ctx context.Context, key string) ([]map[string]any, error)
	GetLinks(ctx context.Context, key string) ([]map[string]any, error)
	ListRecords(ctx context.Context, params map[string]string) ([]map[string]any, error)
}

// ProjectResolver maps project keys to record service ids.
type ProjectResolver interface {
	ResolveID(ctx context.Context, key string) (int64, bool, error)
}

// Pipeline is the full question-to-answer flow. Data moves strictly
// forward through its stages; only the confidence gate can short-circuit
// the request into a clarification.
type Pipeline struct {
	index     *schema.Index
	glossary  *glossary.Glossary
	gate      *ConfidenceGate
	synth     *PromptSynthesizer
	generator *QueryGenerator
	validator *Validator
	executor  Executor
	records   RecordFetcher
	projects  ProjectResolver
	formatter *Formatter
	topK      int
	logger    *zap.Logger
}

// PipelineDeps bundles the pipeline's collaborators.
type PipelineDeps struct {
	Index     *schema.Index
	Glossary  *glossary.Glossary
	Gate      *ConfidenceGate
	Synth     *PromptSynthesizer
	Generator *QueryGenerator
	Validator *Validator
	Executor  Executor
	Records   RecordFetcher
	Projects  ProjectResolver
	Retrieval config.RetrievalConfig
}

// NewPipeline wires the pipeline together.
func NewPipeline(deps PipelineDeps, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		index:     deps.Index,
		glossary:  deps.Glossary,
		gate:      deps.Gate,
		synth:     deps.Synth,
		generator: deps.Generator,
		validator: deps.Validator,
		executor:  deps.Executor,
		records:   deps.Records,
		projects:  deps.Projects,
		formatter: NewFormatter(),
		topK:      deps.Retrieval.TopK,
		logger:    logger.Named("pipeline"),
	}
}

// Process answers one question. It always returns an Answer; failures
// are carried in Answer.Error with a user-facing Text, never a panic.
func (p *Pipeline) Process(ctx context.Context, question string) *models.Answer {
	start := time.Now()
	answer := &models.Answer{
		RequestID: uuid.New(),
		Question:  question,
	}
	trace := &models.Trace{}

	answer.Intent = intent.Classify(question)
	trace.Add("intent", models.TraceInfo, fmt.Sprintf("Classified intent: %s", answer.Intent))

	switch answer.Intent {
	case models.IntentDetail:
		p.handleDetail(ctx, question, answer, trace)
	case models.IntentList:
		p.handleList(ctx, question, answer, trace)
	default:
		p.handleAnalytics(ctx, question, answer, trace)
	}

	answer.Trace = trace.Events()
	answer.Duration = time.Since(start)

	status := "ok"
	switch {
	case answer.Error != "":
		status = "error"
	case answer.Intent == models.IntentClarification:
		status = "clarification"
	}
	metrics.RequestsTotal.WithLabelValues(string(answer.Intent), status).Inc()

	p.logger.Info("question processed",
		zap.String("request_id", answer.RequestID.String()),
		zap.String("intent", string(answer.Intent)),
		zap.String("status", status),
		zap.Duration("elapsed", answer.Duration))
	return answer
}

func (p *Pipeline) handleAnalytics(ctx context.Context, question string, answer *models.Answer, trace *models.Trace) {
	terms := p.glossary.FindTerms(question)
	if len(terms) > 0 {
		keys := make([]string, len(terms))
		for i, t := range terms {
			keys[i] = t.Key
		}
		trace.AddData("glossary", models.TraceInfo, "Matched business terms",
			map[string]any{"terms": keys})
	}

	searchStart := time.Now()
	candidates, err := p.index.Search(ctx, question, p.topK)
	metrics.StageDuration.WithLabelValues("retrieve").Observe(time.Since(searchStart).Seconds())
	if err != nil {
		p.fail(answer, trace, "retrieve", err,
			"The embedding service is unavailable. Please try again later.")
		return
	}
	candidates = p.index.EnrichEssentials(candidates)

	answer.Candidates = candidateNames(candidates)
	traceData := map[string]any{"count": len(candidates)}
	if len(candidates) > 0 {
		traceData["top_score"] = candidates[0].Score
	}
	trace.AddTimed("retrieve", models.TraceInfo,
		fmt.Sprintf("Found %d relevant fields", len(candidates)),
		traceData, time.Since(searchStart))

	decision := p.gate.Check(candidates, terms, p.index.Groups())
	if !decision.Proceed {
		answer.Intent = models.IntentClarification
		answer.Text = decision.Message
		trace.AddData("gate", models.TraceInfo, "Low confidence, asking clarifying question",
			map[string]any{"reason": decision.Reason})
		metrics.ClarificationsTotal.WithLabelValues(decision.Reason).Inc()
		return
	}
	trace.Add("gate", models.TraceInfo, "Confidence OK, proceeding with generation")

	prompt := p.synth.Synthesize(question, candidates, terms)
	answer.Prompt = prompt
	trace.AddData("synthesize", models.TraceInfo, "Prompt assembled",
		map[string]any{"prompt_len": len(prompt)})

	genStart := time.Now()
	result, err := p.generator.Generate(ctx, prompt)
	metrics.StageDuration.WithLabelValues("generate").Observe(time.Since(genStart).Seconds())
	if result != nil {
		answer.RawResponse = result.RawResponse
		metrics.RepairOutcomesTotal.WithLabelValues(result.RepairStage).Inc()
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrUnparseableResponse) {
			metrics.ParseFailuresTotal.Inc()
			p.fail(answer, trace, "generate", err,
				"I could not build a query from the model's response. Please try rephrasing your question.")
			return
		}
		p.fail(answer, trace, "generate", err,
			"The language model is unavailable. Please try again later.")
		return
	}
	trace.AddTimed("generate", models.TraceLLM, "Query generated",
		map[string]any{"repair_stage": result.RepairStage}, result.Elapsed)

	query := result.Query
	if err := p.validator.Validate(query, candidates); err != nil {
		metrics.ValidationFailuresTotal.WithLabelValues(validationReason(err)).Inc()
		answer.Intent = models.IntentClarification
		answer.Text = invalidQueryMessage()
		trace.AddData("validate", models.TraceInfo, "Generated query failed validation, asking clarifying question",
			map[string]any{"reason": validationReason(err), "error": err.Error()})
		metrics.ClarificationsTotal.WithLabelValues("invalid_query").Inc()
		p.logger.Warn("generated query failed validation",
			zap.String("request_id", answer.RequestID.String()),
			zap.Error(err))
		return
	}
	answer.GeneratedQuery = query
	trace.Add("validate", models.TraceInfo, "Query validated")

	// Diagnostic only; never fails the request.
	if sql, err := p.executor.SQL(ctx, query); err == nil {
		answer.CompiledSQL = sql
		trace.AddData("sql", models.TraceSQL, "Compiled SQL retrieved",
			map[string]any{"sql": sql})
	} else {
		trace.Add("sql", models.TraceInfo, "Compiled SQL unavailable")
	}

	execStart := time.Now()
	rows, err := p.executor.Load(ctx, query)
	metrics.StageDuration.WithLabelValues("execute").Observe(time.Since(execStart).Seconds())
	if err != nil {
		p.fail(answer, trace, "execute", err,
			"The metrics service could not run this query. Please try rephrasing your question.")
		return
	}
	trace.AddTimed("execute", models.TraceExecute,
		fmt.Sprintf("Query executed, %d rows", len(rows)), nil, time.Since(execStart))

	answer.Text = p.formatter.FormatRows(rows, p.index.Fields())
	trace.Add("format", models.TraceSuccess, "Answer rendered")
}

func (p *Pipeline) handleDetail(ctx context.Context, question string, answer *models.Answer, trace *models.Trace) {
	key := intent.RecordKey(question)
	if key == "" {
		p.fail(answer, trace, "detail", fmt.Errorf("no record key in question"),
			"I could not find a record key in your question. Use the KEY-123 form.")
		return
	}
	trace.AddData("detail", models.TraceInfo, "Extracted record key",
		map[string]any{"key": key})

	lower := strings.ToLower(question)
	var err error
	switch {
	case strings.Contains(lower, "comment"):
		var comments []map[string]any
		comments, err = p.records.GetComments(ctx, key)
		if err == nil {
			answer.Text = p.formatter.FormatComments(key, comments)
		}
	case strings.Contains(lower, "link"):
		var links []map[string]any
		links, err = p.records.GetLinks(ctx, key)
		if err == nil {
			answer.Text = p.formatter.FormatComments(key, links)
		}
	default:
		var record map[string]any
		record, err = p.records.GetRecord(ctx, key)
		if err == nil {
			answer.Text = p.formatter.FormatDetail(record)
		}
	}
	if err != nil {
		p.fail(answer, trace, "detail", err,
			"The record service is unavailable. Please try again later.")
		return
	}
	trace.Add("detail", models.TraceSuccess, "Record rendered")
}

// projectTokenPattern matches candidate project keys in a question.
var projectTokenPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,9}\b`)

func (p *Pipeline) handleList(ctx context.Context, question string, answer *models.Answer, trace *models.Trace) {
	params := map[string]string{}

	// Uppercase tokens that resolve through the project cache become a
	// project filter.
	for _, token := range projectTokenPattern.FindAllString(question, -1) {
		id, ok, err := p.projects.ResolveID(ctx, token)
		if err != nil {
			trace.Add("list", models.TraceInfo, "Project resolution unavailable")
			break
		}
		if ok {
			params["project_id"] = fmt.Sprintf("%d", id)
			trace.AddData("list", models.TraceInfo, "Filter by project",
				map[string]any{"key": token, "id": id})
			break
		}
	}

	// Glossary terms contribute one column filter, keyed by semantic type.
	for _, term := range p.glossary.FindTerms(question) {
		if term.SemanticType == "" {
			continue
		}
		params[term.SemanticType] = term.Key
		trace.AddData("list", models.TraceInfo, "Filter by term",
			map[string]any{"term": term.Key, "column": term.SemanticType})
		break
	}

	execStart := time.Now()
	records, err := p.records.ListRecords(ctx, params)
	metrics.StageDuration.WithLabelValues("execute").Observe(time.Since(execStart).Seconds())
	if err != nil {
		p.fail(answer, trace, "list", err,
			"The record service is unavailable. Please try again later.")
		return
	}
	trace.AddTimed("list", models.TraceExecute,
		fmt.Sprintf("Listed %d records", len(records)), nil, time.Since(execStart))

	answer.Text = p.formatter.FormatList(records)
}

// fail records the error on the answer with a user-facing text.
func (p *Pipeline) fail(answer *models.Answer, trace *models.Trace, stage string, err error, text string) {
	answer.Error = err.Error()
	answer.Text = text
	trace.AddData(stage, models.TraceError, "Stage failed",
		map[string]any{"error": err.Error()})
	p.logger.Warn("pipeline stage failed",
		zap.String("request_id", answer.RequestID.String()),
		zap.String("stage", stage),
		zap.Error(err))
}

func candidateNames(candidates []models.CandidateField) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}

func invalidQueryMessage() string {
	return strings.Join([]string{
		"I could not map your question onto the available data. Example questions that work well:",
		`- "How many issues per project?"`,
		`- "Total story points by sprint"`,
		`- "Average resolution time by assignee"`,
		`- "Top projects by open issues"`,
		"Could you rephrase using the fields you are interested in?",
	}, "\n")
}

func validationReason(err error) string {
	switch {
	case strings.Contains(err.Error(), "measure"):
		return "measure"
	case strings.Contains(err.Error(), "dimension"):
		return "dimension"
	case strings.Contains(err.Error(), "filter"):
		return "filter"
	case strings.Contains(err.Error(), "order"):
		return "order"
	default:
		return "other"
	}
}
