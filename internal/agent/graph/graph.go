package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	chatmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/finsight-router/server/internal/agent/graph/agents"
	"github.com/finsight-router/server/internal/agent/graph/nodes"
	"github.com/finsight-router/server/internal/agent/graph/observers"
	"github.com/finsight-router/server/internal/agent/graph/tools"
	"github.com/finsight-router/server/internal/agent/model"
	errx "github.com/finsight-router/server/internal/core/error"
	"github.com/finsight-router/server/internal/marketdata"
	"github.com/finsight-router/server/internal/metrics"
	"github.com/finsight-router/server/internal/retrieval"
	logx "github.com/finsight-router/server/pkg/logger"
)

// Runner executes the compiled graph for one query.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (string, error)
	Run(ctx context.Context, in model.QueryInput) (*model.Result, error)
}

// Config holds everything needed to compose the full agent graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs chat
// models, tools and the registry.
type Config struct {
	GenAI          *genai.Client
	Financial      model.FinancialModelConfig
	Document       model.DocumentModelConfig
	Retrieval      model.RetrievalConfig
	Graph          model.GraphConfig
	MarketData     marketdata.Provider
	Embedder       retrieval.Embedder
	Store          retrieval.Store
	TranscriptRepo model.TranscriptRepository // optional
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	FinancialModel     chatmodel.ToolCallingChatModel
	DocumentModel      chatmodel.ToolCallingChatModel
	FinancialModelName string
	DocumentModelName  string
	FinancialPolicy    agents.ToolChoicePolicy
	DocumentPolicy     agents.ToolChoicePolicy
	Registry           *tools.Registry
	ToolMaxCalls       int
}

// GraphBuilder handles the construction of the routing graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type sessionKey struct{}

// withSession makes s the graph local state of the run started with ctx.
func withSession(ctx context.Context, s *model.SessionState) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
	repo     model.TranscriptRepository
}

// NewRunner wraps a compiled graph. repo may be nil to skip archiving.
func NewRunner(runnable compose.Runnable[model.QueryInput, *schema.Message], repo model.TranscriptRepository) Runner {
	return &graphRunner{runnable: runnable, repo: repo}
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	res, err := r.Run(ctx, in)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

func (r *graphRunner) Run(ctx context.Context, in model.QueryInput) (*model.Result, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, errx.BadRequest("query is required")
	}

	state := &model.SessionState{SessionID: uuid.NewString()}
	branch := nodes.Route(in.DocumentSources)
	log := logx.Session(state.SessionID)
	log.Info().Str("branch", string(branch)).Str("symbol", in.Symbol).Msg("Query received")

	start := time.Now()
	out, err := r.runnable.Invoke(withSession(ctx, state), in, compose.WithCallbacks(observers.NewAllCallbacks()))
	metrics.RecordGraphRun(string(branch), time.Since(start), state.TotalCostUSD, err)
	if err != nil {
		log.Error().Err(err).Str("branch", string(branch)).Msg("Graph run failed")
		return nil, fmt.Errorf("run %s: %w", branch, err)
	}

	res := &model.Result{
		SessionID:  state.SessionID,
		Branch:     branch,
		Transcript: state.Transcript.Messages(),
		CostUSD:    state.TotalCostUSD,
	}
	if out != nil {
		res.Answer = out.Content
	}

	log.Info().
		Str("branch", string(branch)).
		Int("messages", len(res.Transcript)).
		Int("tool_calls", state.ToolCallCount).
		Float64("total_cost_usd", res.CostUSD).
		Dur("took", time.Since(start)).
		Msg("Query answered")

	r.archive(ctx, res)
	return res, nil
}

// archive stores the transcript; failures only cost the history, not the answer.
func (r *graphRunner) archive(ctx context.Context, res *model.Result) {
	if r.repo == nil {
		return
	}
	if err := r.repo.AppendMessages(ctx, res.SessionID, res.Transcript); err != nil {
		logx.Error().Err(err).Str("session_id", res.SessionID).Msg("Error archiving transcript")
		return
	}
	logx.Debug().Str("session_id", res.SessionID).Int("messages", len(res.Transcript)).Msg("Transcript archived")
}

// BuildAgentGraph creates chat models and tools, builds the graph and returns a Runner.
func BuildAgentGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.MarketData == nil || cfg.Embedder == nil || cfg.Store == nil {
		return nil, fmt.Errorf("market data, embedder and store are required")
	}

	cms, err := nodes.NewChatModels(ctx, cfg.GenAI, nodes.ChatModelConfig{
		Financial: &cfg.Financial,
		Document:  &cfg.Document,
	})
	if err != nil {
		return nil, err
	}

	financialTools, err := tools.NewFinancialTools(cfg.MarketData)
	if err != nil {
		return nil, err
	}
	retrievalTool, err := tools.NewRetrievalTool(cfg.Embedder, cfg.Store, cfg.Retrieval.TopK)
	if err != nil {
		return nil, err
	}
	registry, err := tools.NewRegistry(ctx, append(financialTools, retrievalTool)...)
	if err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	financialPolicy, err := agents.ParsePolicy(cfg.Financial.ToolChoice)
	if err != nil {
		return nil, err
	}
	documentPolicy, err := agents.ParsePolicy(cfg.Document.ToolChoice)
	if err != nil {
		return nil, err
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		FinancialModel:     cms.Financial,
		DocumentModel:      cms.Document,
		FinancialModelName: cms.FinancialModelName,
		DocumentModelName:  cms.DocumentModelName,
		FinancialPolicy:    financialPolicy,
		DocumentPolicy:     documentPolicy,
		Registry:           registry,
		ToolMaxCalls:       cfg.Graph.Tools.MaxCalls,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Strs("tools", registry.Names()).Msg("Agent graph built successfully")
	return NewRunner(runnable, cfg.TranscriptRepo), nil
}

// BuildGraph constructs and returns the compiled routing graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.FinancialModel == nil || config.DocumentModel == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.Registry == nil {
		return nil, fmt.Errorf("tool registry is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.SessionState {
				if s, ok := ctx.Value(sessionKey{}).(*model.SessionState); ok && s != nil {
					return s
				}
				return &model.SessionState{SessionID: uuid.NewString()}
			}),
		),
	}

	if err := builder.addRouter(); err != nil {
		return nil, err
	}
	if err := builder.addAgent(ctx, agentSpec{
		branch:    model.BranchFinancial,
		chat:      config.FinancialModel,
		modelName: config.FinancialModelName,
		policy:    config.FinancialPolicy,
		toolNames: tools.FinancialToolNames,
		prompt:    nodes.FinancialPrompt,
	}); err != nil {
		return nil, err
	}
	if err := builder.addAgent(ctx, agentSpec{
		branch:    model.BranchDocument,
		chat:      config.DocumentModel,
		modelName: config.DocumentModelName,
		policy:    config.DocumentPolicy,
		toolNames: tools.DocumentToolNames,
		prompt:    nodes.DocumentPrompt,
	}); err != nil {
		return nil, err
	}
	if err := builder.addRouterBranch(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addRouter adds START -> Router.
func (b *GraphBuilder) addRouter() error {
	if err := b.graph.AddLambdaNode(nodes.NodeRouter,
		nodes.NewRouterNode(),
		compose.WithNodeName(nodes.NodeRouter),
		compose.WithStatePreHandler(nodes.NewRouterPreHandler()),
		compose.WithStatePostHandler(nodes.NewRouterPostHandler()),
	); err != nil {
		return fmt.Errorf("error adding router node: %w", err)
	}
	if err := b.graph.AddEdge(compose.START, nodes.NodeRouter); err != nil {
		return fmt.Errorf("error adding start edge: %w", err)
	}
	return nil
}

// addRouterBranch connects the router to the agents. Branch targets must
// already be in the graph.
func (b *GraphBuilder) addRouterBranch() error {
	routerBranch := compose.NewGraphBranch(
		nodes.NewRouterCondition(),
		map[string]bool{
			nodes.NodeFinancialAgent: true,
			nodes.NodeDocumentAgent:  true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeRouter, routerBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding router branch")
		return fmt.Errorf("error adding router branch: %w", err)
	}
	return nil
}

type agentSpec struct {
	branch    model.Branch
	chat      chatmodel.ToolCallingChatModel
	modelName string
	policy    agents.ToolChoicePolicy
	toolNames []string
	prompt    nodes.PromptFunc
}

// addAgent adds one agent node, its tools node and the loop between them.
func (b *GraphBuilder) addAgent(ctx context.Context, spec agentSpec) error {
	agentNode := string(spec.branch)
	toolNode := nodes.ToolExecNode(spec.branch)

	infos, err := b.config.Registry.Infos(spec.toolNames...)
	if err != nil {
		return fmt.Errorf("%s tools: %w", agentNode, err)
	}
	agent, err := agents.New(spec.chat, agents.Config{
		Branch:    spec.branch,
		ModelName: spec.modelName,
		Tools:     infos,
		Policy:    spec.policy,
	})
	if err != nil {
		logx.Error().Err(err).Str("node", agentNode).Msg("Failed to create agent")
		return err
	}

	bound, err := b.config.Registry.Tools(spec.toolNames...)
	if err != nil {
		return fmt.Errorf("%s tools: %w", agentNode, err)
	}
	toolsNode, err := nodes.NewToolsNode(ctx, bound)
	if err != nil {
		logx.Error().Err(err).Str("node", toolNode).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	nodeCfg := nodes.AgentNodeConfig{
		Branch:       spec.branch,
		ModelName:    spec.modelName,
		MaxToolCalls: b.config.ToolMaxCalls,
		Prompt:       spec.prompt,
	}
	if err := b.graph.AddChatModelNode(agentNode, agent,
		compose.WithNodeName(agentNode),
		compose.WithStatePreHandler(nodes.NewAgentPreHandler(nodeCfg)),
		compose.WithStatePostHandler(nodes.NewAgentPostHandler(nodeCfg)),
	); err != nil {
		return fmt.Errorf("error adding %s node: %w", agentNode, err)
	}
	if err := b.graph.AddToolsNode(toolNode, toolsNode,
		compose.WithNodeName(toolNode),
		compose.WithStatePreHandler(nodes.NewToolExecPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewToolExecPostHandler()),
	); err != nil {
		return fmt.Errorf("error adding %s node: %w", toolNode, err)
	}

	decision := compose.NewGraphBranch(
		nodes.NewAgentCondition(spec.branch),
		map[string]bool{
			toolNode:    true,
			compose.END: true,
		},
	)
	if err := b.graph.AddBranch(agentNode, decision); err != nil {
		logx.Error().Err(err).Str("node", agentNode).Msg("Error adding decision branch")
		return fmt.Errorf("error adding %s decision branch: %w", agentNode, err)
	}
	if err := b.graph.AddEdge(toolNode, agentNode); err != nil {
		return fmt.Errorf("error adding %s edge: %w", toolNode, err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("finsight"),
		compose.WithMaxRunSteps(nodes.MaxRunSteps(b.config.ToolMaxCalls)),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
