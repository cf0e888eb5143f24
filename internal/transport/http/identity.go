package http

import "net/http"

// UserHeader carries the caller identity set by the session gateway.
const UserHeader = "X-User-ID"

// userID resolves the caller. Browsers cannot set headers on WebSocket
// upgrades, so the userId query parameter is accepted as a fallback.
func userID(r *http.Request) string {
	if id := r.Header.Get(UserHeader); id != "" {
		return id
	}
	return r.URL.Query().Get("userId")
}
