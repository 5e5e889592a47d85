package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stockbot-api/internal/svc"
	"stockbot-api/internal/types"
)

// PingHandler answers liveness probes.
func PingHandler(_ *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.OkJsonCtx(r.Context(), w, &types.PingReply{Status: "ok"})
	}
}
