package cache

import "fmt"

const (
	approvalLockPrefix = "lock:bulk_update_request:%d"
	userEventsPrefix   = "events:user:%d"
	tokenBlacklistKey  = "blacklist:%s"

	// BroadcastChannel carries workflow events visible to every client.
	BroadcastChannel = "events:broadcast"
)

// ApprovalLockKey guards approval of one bulk update request.
func ApprovalLockKey(requestID uint) string {
	return fmt.Sprintf(approvalLockPrefix, requestID)
}

// UserEventsChannel is the pub/sub channel for events addressed to one user.
func UserEventsChannel(userID uint) string {
	return fmt.Sprintf(userEventsPrefix, userID)
}

// TokenBlacklistKey marks a revoked JWT by its jti.
func TokenBlacklistKey(jti string) string {
	return fmt.Sprintf(tokenBlacklistKey, jti)
}
