package domain

import "time"

// Audit actions recorded for ownership transitions and admin operations.
const (
	AuditStreamAdopt    = "stream.adopt"
	AuditStreamRelease  = "stream.release"
	AuditStreamExpire   = "stream.expire"
	AuditStreamSetLive  = "stream.set_live"
	AuditStreamRequest  = "stream.request"
	AuditStreamRespond  = "stream.respond"
	AuditStreamHandoff  = "stream.handoff"
	AuditUserCreate     = "user.create"
	AuditUserUpdate     = "user.update"
	AuditUserResetPass  = "user.reset_password"
	AuditPasswordChange = "user.change_password"
	AuditLogin          = "auth.login"
)

type AuditEntry struct {
	ID           string                 `json:"id"`
	ActorUserID  UserID                 `json:"actorUserId"`
	Action       string                 `json:"action"`
	TargetUserID UserID                 `json:"targetUserId,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}
