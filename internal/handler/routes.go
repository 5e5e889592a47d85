package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"stockbot-api/internal/svc"
)

// RegisterHandlers attaches the webhook and liveness routes.
func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/callback",
				Handler: CallbackHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/ping",
				Handler: PingHandler(serverCtx),
			},
		},
	)
}
