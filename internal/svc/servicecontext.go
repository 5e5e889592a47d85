package svc

import (
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver

	"stockbot-api/internal/config"
	"stockbot-api/internal/model"
	"stockbot-api/pkg/command"
	linepkg "stockbot-api/pkg/line"
	llmpkg "stockbot-api/pkg/llm"
	"stockbot-api/pkg/query"
	"stockbot-api/pkg/store"
)

// ServiceContext wires the read-only collaborators every request
// shares: the alias table, the price store, the resolver pipeline and
// the outbound clients.
type ServiceContext struct {
	Config config.Config

	Aliases   *store.AliasTable
	Store     *store.Store
	Parser    *command.Parser
	Resolver  *query.Resolver
	Formatter *query.Formatter

	Line *linepkg.Client
	// LLM is nil when no fallback endpoint is configured; free-form
	// questions then get the upstream-error reply.
	LLM llmpkg.LLMClient

	// QueryLog journals handled messages; a nop model is used when
	// Postgres is not configured.
	QueryLog model.QueryLogModel
}

// NewServiceContext builds the context or panics: a bot without its
// alias table or channel credentials cannot serve at all.
func NewServiceContext(c config.Config) *ServiceContext {
	aliases, err := store.LoadAliasTable(c.ResolvePath(c.SymbolsFile))
	logx.Must(err)

	var storeOpts []store.Option
	if c.SnapshotDir != "" {
		storeOpts = append(storeOpts, store.WithSnapshotDir(c.ResolvePath(c.SnapshotDir)))
	}
	priceStore := store.New(c.ResolvePath(c.DataDir), storeOpts...)

	lineCfg := c.Line.Value
	if lineCfg == nil {
		lineCfg, err = linepkg.ConfigFromEnv()
		logx.Must(err)
	}
	lineClient, err := linepkg.NewClient(lineCfg)
	logx.Must(err)

	var llmClient llmpkg.LLMClient
	if c.LLM.Value != nil {
		llmClient, err = llmpkg.NewClient(c.LLM.Value)
		logx.Must(err)
	} else {
		logx.Info("llm section not configured; ai fallback disabled")
	}

	queryLog := model.QueryLogModel(model.NewNopQueryLogModel())
	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		queryLog = model.NewQueryLogModel(conn)
	}

	return &ServiceContext{
		Config:    c,
		Aliases:   aliases,
		Store:     priceStore,
		Parser:    command.NewParser(aliases),
		Resolver:  query.NewResolver(priceStore, c.Policy()),
		Formatter: query.NewFormatter(c.MaxReplyRunes),
		Line:      lineClient,
		LLM:       llmClient,
		QueryLog:  queryLog,
	}
}
