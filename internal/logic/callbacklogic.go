package logic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stockbot-api/internal/model"
	"stockbot-api/internal/svc"
	"stockbot-api/pkg/command"
	"stockbot-api/pkg/line"
	"stockbot-api/pkg/llm"
	"stockbot-api/pkg/query"
)

// CallbackLogic turns webhook events into replies.
type CallbackLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCallbackLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CallbackLogic {
	return &CallbackLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Handle processes every text-message event in the webhook body. Reply
// failures are logged and never propagated; the platform has already
// been acknowledged by the handler.
func (l *CallbackLogic) Handle(req *line.CallbackRequest) {
	for i := range req.Events {
		ev := &req.Events[i]
		if !ev.IsTextMessage() {
			l.Infof("skipping event type=%s", ev.Type)
			continue
		}

		start := time.Now()
		reply, kind := l.BuildReply(ev.Message.Text)
		l.journal(ev, kind, reply, time.Since(start))

		if ev.ReplyToken == "" {
			continue
		}
		if err := l.svcCtx.Line.Reply(l.ctx, ev.ReplyToken, reply); err != nil {
			l.Errorf("send reply: %v", err)
		}
	}
}

// BuildReply maps one message to reply text and the handled query
// kind. It never panics: any internal failure degrades to the generic
// error reply.
func (l *CallbackLogic) BuildReply(text string) (reply, kind string) {
	defer func() {
		if r := recover(); r != nil {
			l.Errorf("panic while handling %q: %v", text, r)
			reply, kind = "⚠ 系統發生錯誤，請稍後再試", "panic"
		}
	}()

	q, err := l.svcCtx.Parser.Parse(text)
	if err != nil {
		return l.svcCtx.Formatter.FormatError(err), "parse_error"
	}

	switch q.Kind {
	case command.KindHelp:
		return l.svcCtx.Formatter.HelpText(), q.Kind.String()
	case command.KindAIFallback:
		return l.aiReply(q.Text), q.Kind.String()
	}

	res, err := l.svcCtx.Resolver.Resolve(l.ctx, q)
	if err != nil {
		return l.svcCtx.Formatter.FormatError(err), q.Kind.String()
	}
	return l.svcCtx.Formatter.Format(res), q.Kind.String()
}

func (l *CallbackLogic) aiReply(text string) string {
	if l.svcCtx.LLM == nil {
		return l.svcCtx.Formatter.FormatError(&query.UpstreamAIError{})
	}

	messages := []llm.Message{}
	if prompt := l.svcCtx.LLM.GetConfig().SystemPrompt; prompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: prompt})
	}
	messages = append(messages, llm.Message{Role: "user", Content: text})

	resp, err := l.svcCtx.LLM.Chat(l.ctx, &llm.ChatRequest{Messages: messages})
	if err != nil {
		l.Errorf("ai fallback: %v", err)
		return l.svcCtx.Formatter.FormatError(&query.UpstreamAIError{Err: err})
	}
	return l.svcCtx.Formatter.FormatAIReply(resp.Text())
}

// journal records the handled message; the user ID is hashed so the
// table never holds raw identifiers.
func (l *CallbackLogic) journal(ev *line.Event, kind, reply string, latency time.Duration) {
	entry := &model.QueryLog{
		UserHash:  hashUserID(ev.Source.UserID),
		Input:     ev.Message.Text,
		Kind:      kind,
		ReplySize: len([]rune(reply)),
		LatencyMs: latency.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}
	if err := l.svcCtx.QueryLog.Insert(l.ctx, entry); err != nil {
		l.Errorf("journal insert: %v", err)
	}
}

func hashUserID(userID string) string {
	if userID == "" {
		return "anonymous"
	}
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}
