package audit

import (
	"context"

	"github.com/aurzen/roombot/pkg/log"
)

// Audit actions for the room lifecycle.
const (
	ActionCreateRoom    = "room.create"
	ActionCreateModChat = "room.create_modchat"
	ActionReportRoom    = "room.report"
	ActionLeaveRoom     = "room.leave"
	ActionExpireRoom    = "room.expire"
	ActionSweep         = "room.sweep"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, userID, roomID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldRoomID, roomID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action, userID, roomID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldRoomID, roomID).
		Str(FieldDetail, detail).
		Msg(msg)
}
