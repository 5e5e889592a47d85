package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"

	"stockbot-api/internal/logic"
	"stockbot-api/internal/svc"
	"stockbot-api/pkg/line"
)

const signatureHeader = "X-Line-Signature"

// CallbackHandler verifies the webhook signature on the raw body and
// hands the decoded events to the callback logic. Once the signature
// checks out the platform always gets a 200; per-event failures are
// handled inside the logic.
func CallbackHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}

		if !svcCtx.Line.ValidateSignature(r.Header.Get(signatureHeader), body) {
			logx.WithContext(r.Context()).Error("webhook signature mismatch")
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}

		var req line.CallbackRequest
		if err := json.Unmarshal(body, &req); err != nil {
			logx.WithContext(r.Context()).Errorf("decode webhook body: %v", err)
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}

		logic.NewCallbackLogic(r.Context(), svcCtx).Handle(&req)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
