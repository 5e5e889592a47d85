package types

// PingReply is the liveness probe response.
type PingReply struct {
	Status string `json:"status"`
}
