package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"Scrumble/matchups"
	"Scrumble/models"
)

// AdminListMatchups lists every matchup with real and synthetic tallies.
// scope=active narrows it to active matchups regardless of schedule.
func (server *Server) AdminListMatchups(c *gin.Context) {
	var (
		payloads []matchups.Payload
		err      error
	)
	if c.Query("scope") == "active" {
		payloads, err = server.Engine.ListVisible(c.Request.Context(), false)
	} else {
		payloads, err = server.Engine.AdminListAll(c.Request.Context())
	}
	if err != nil {
		server.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchupList{Matchups: nonNil(payloads)})
}

func (server *Server) AdminCreateMatchup(c *gin.Context) {
	var body createMatchupBody
	if err := bindBody(c, &body); err != nil {
		server.respondError(c, err)
		return
	}
	req := body.request()

	m, err := server.Engine.Create(c.Request.Context(), matchups.CreateInput{
		ID:           req.ID,
		Title:        req.Title,
		Category:     req.Category,
		LeftEntryID:  req.LeftEntryID,
		RightEntryID: req.RightEntryID,
		Active:       req.Active,
		Cadence:      req.Cadence,
		Message:      req.Message,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Left:         req.Left,
		Right:        req.Right,
	})
	server.respondMutation(c, m, err)
}

func (server *Server) AdminUpdateMatchup(c *gin.Context) {
	var req updateMatchupRequest
	if err := bindBody(c, &req); err != nil {
		server.respondError(c, err)
		return
	}

	m, err := server.Engine.Update(c.Request.Context(), req.MatchupID, matchups.Patch{
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Cadence:  req.Cadence,
		Message:  req.Message,
		Active:   req.Active,
	})
	server.respondMutation(c, m, err)
}

func (server *Server) AdminActivate(c *gin.Context) {
	server.byMatchupID(c, func(ctx context.Context, id string) {
		m, err := server.Engine.Activate(ctx, id)
		if err != nil {
			server.respondError(c, err)
			return
		}
		server.invalidateListings(ctx)
		c.JSON(http.StatusOK, gin.H{"ok": true, "active": m.ID})
	})
}

func (server *Server) AdminDeactivate(c *gin.Context) {
	server.byMatchupID(c, func(ctx context.Context, id string) {
		m, err := server.Engine.Deactivate(ctx, id)
		if err != nil {
			server.respondError(c, err)
			return
		}
		server.invalidateListings(ctx)
		c.JSON(http.StatusOK, gin.H{"ok": true, "inactive": m.ID})
	})
}

func (server *Server) AdminClone(c *gin.Context) {
	server.byMatchupID(c, func(ctx context.Context, id string) {
		m, err := server.Engine.Clone(ctx, id)
		server.respondMutation(c, m, err)
	})
}

func (server *Server) AdminDelete(c *gin.Context) {
	server.byMatchupID(c, func(ctx context.Context, id string) {
		if err := server.Engine.Delete(ctx, id); err != nil {
			server.respondError(c, err)
			return
		}
		server.invalidateListings(ctx)
		c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": id})
	})
}

func (server *Server) AdminBulkActivate(c *gin.Context) {
	server.bulk(c, server.Engine.BulkActivate)
}

func (server *Server) AdminBulkDeactivate(c *gin.Context) {
	server.bulk(c, server.Engine.BulkDeactivate)
}

func (server *Server) AdminResetVotes(c *gin.Context) {
	var req resetVotesRequest
	if err := bindBody(c, &req); err != nil {
		server.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := server.Ledger.ResetVotes(ctx, req.MatchupID, req.IncludeSynthetic); err != nil {
		server.respondError(c, err)
		return
	}
	server.invalidateListings(ctx)
	c.JSON(http.StatusOK, gin.H{"ok": true, "reset": req.MatchupID, "include_synthetic": req.IncludeSynthetic})
}

func (server *Server) AdminArchiveEnded(c *gin.Context) {
	ctx := c.Request.Context()
	n, err := server.Engine.ArchiveEnded(ctx)
	if err != nil {
		server.respondError(c, err)
		return
	}
	if n > 0 {
		server.invalidateListings(ctx)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "archived": n})
}

func (server *Server) byMatchupID(c *gin.Context, fn func(ctx context.Context, id string)) {
	var req matchupIDRequest
	if err := bindBody(c, &req); err != nil {
		server.respondError(c, err)
		return
	}
	fn(c.Request.Context(), req.MatchupID)
}

func (server *Server) bulk(c *gin.Context, apply func(context.Context, []string) (matchups.BulkResult, error)) {
	var req bulkRequest
	if err := bindBody(c, &req); err != nil {
		server.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	result, err := apply(ctx, req.MatchupIDs)
	if result.Updated > 0 {
		server.invalidateListings(ctx)
	}
	if err != nil {
		server.respondError(c, err)
		return
	}
	if result.Skipped == nil {
		result.Skipped = []matchups.Skipped{}
	}
	c.JSON(http.StatusOK, result)
}

func (server *Server) respondMutation(c *gin.Context, m models.Matchup, err error) {
	if err != nil {
		server.respondError(c, err)
		return
	}
	server.invalidateListings(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true, "matchup": matchups.ViewOf(m)})
}
