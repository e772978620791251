package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Scrumble/utils/apperror"
	"Scrumble/utils/httpctx"
	"Scrumble/voting"
)

// CastVote records one vote. Requests carrying the synthetic header count
// toward the synthetic tally and skip the dedup window.
func (server *Server) CastVote(c *gin.Context) {
	var req voteRequest
	if err := bindBody(c, &req); err != nil {
		server.respondError(c, apperror.Validation(apperror.CodeVoteInvalid, "Invalid vote"))
		return
	}

	receipt, err := server.Ledger.CastVote(c.Request.Context(), voting.Ballot{
		MatchupID:   req.MatchupID,
		Side:        req.Side,
		Fingerprint: req.Fingerprint,
		Synthetic:   httpctx.IsSynthetic(c),
	})
	if err != nil {
		server.respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"success": true, "vote": receipt})
}
