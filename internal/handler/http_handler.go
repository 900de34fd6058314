package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/aurzen/roombot/internal/audit"
	"github.com/aurzen/roombot/internal/domain"
	"github.com/aurzen/roombot/internal/platform"
	"github.com/aurzen/roombot/internal/service"
	"github.com/aurzen/roombot/pkg/jwt"
	"github.com/aurzen/roombot/pkg/log"
	"github.com/aurzen/roombot/pkg/middleware"
	"github.com/aurzen/roombot/pkg/response"
)

// Handler serves the operator API.
type Handler struct {
	roomService    service.RoomService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(roomService service.RoomService, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		roomService:    roomService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1", h.authMiddleware.RequireRole(jwt.RoleAdmin))
	{
		api.GET("/guilds", h.ListGuilds)
		guilds := api.Group("/guilds/:guildID")
		{
			guilds.GET("/rooms", h.ListRooms)
			guilds.GET("/rooms/:roomID", h.GetRoom)
			guilds.POST("/rooms/:roomID/expire", h.ExpireRoom)
		}
		api.POST("/sweep", h.Sweep)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// ListGuilds lists the guilds with a room document.
func (h *Handler) ListGuilds(c *gin.Context) {
	ctx := c.Request.Context()

	guilds, err := h.roomService.ListGuilds(ctx)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list guilds")
		response.InternalError(c, "failed to list guilds")
		return
	}

	response.Success(c, gin.H{
		"guilds": guilds,
		"total":  len(guilds),
	})
}

// ListRooms lists the tracked rooms of a guild.
func (h *Handler) ListRooms(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	guildID := c.Param("guildID")

	rooms, err := h.roomService.ListRooms(ctx, guildID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldGuildID, guildID).Msg("failed to list rooms")
		response.InternalError(c, "failed to list rooms")
		return
	}

	response.Success(c, gin.H{
		"rooms": rooms,
		"total": len(rooms),
	})
}

// GetRoom returns one tracked room.
func (h *Handler) GetRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	guildID := c.Param("guildID")
	roomID := c.Param("roomID")

	room, err := h.roomService.GetRoom(ctx, guildID, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room")
		response.InternalError(c, "failed to get room")
		return
	}

	response.Success(c, room)
}

// ExpireRoom runs the expiry check for one room now.
func (h *Handler) ExpireRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	guildID := c.Param("guildID")
	roomID := c.Param("roomID")

	result, err := h.roomService.ExpireCheck(ctx, guildID, roomID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to check room expiry")
		h.platformOrInternal(c, err, "failed to check room expiry")
		return
	}

	audit.LogWithDetail(ctx, audit.ActionExpireRoom, middleware.GetUserID(c), roomID, result.String(), "manual expiry check")
	response.Success(c, gin.H{
		"room_id": roomID,
		"result":  result.String(),
		"deleted": result.Deleted(),
	})
}

// Sweep runs a full sweep now.
func (h *Handler) Sweep(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	summary, err := h.roomService.Sweep(ctx)
	if err != nil {
		l.Error().Err(err).Msg("manual sweep failed")
		h.platformOrInternal(c, err, "sweep failed")
		return
	}

	audit.Log(ctx, audit.ActionSweep, middleware.GetUserID(c), "", "manual sweep")
	response.Success(c, summary)
}

func (h *Handler) platformOrInternal(c *gin.Context, err error, message string) {
	var pe *platform.Error
	if errors.As(err, &pe) {
		response.BadGateway(c, message)
		return
	}
	response.InternalError(c, message)
}
