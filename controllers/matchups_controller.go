package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"Scrumble/matchups"
)

type matchupList struct {
	Matchups []matchups.Payload `json:"matchups"`
}

// historyItem flattens active beside the payload, as the history page expects.
type historyItem struct {
	matchups.Payload
	Active bool `json:"active"`
}

// GetMatchups returns the currently visible matchups. The encoded list is
// cached in Redis for the public cache TTL.
func (server *Server) GetMatchups(c *gin.Context) {
	if server.serveCached(c, visibleListingKey) {
		return
	}

	payloads, err := server.Engine.ListVisible(c.Request.Context(), true)
	if err != nil {
		server.respondError(c, err)
		return
	}

	body, err := json.Marshal(matchupList{Matchups: nonNil(payloads)})
	if err != nil {
		server.respondError(c, err)
		return
	}
	server.storeCached(c.Request.Context(), visibleListingKey, body)

	server.publicCacheControl(c)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (server *Server) GetHistory(c *gin.Context) {
	payloads, err := server.Engine.History(c.Request.Context())
	if err != nil {
		server.respondError(c, err)
		return
	}

	history := make([]historyItem, 0, len(payloads))
	for _, p := range payloads {
		history = append(history, historyItem{Payload: p, Active: p.Matchup.Active})
	}
	server.publicCacheControl(c)
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (server *Server) GetFuture(c *gin.Context) {
	payloads, err := server.Engine.Future(c.Request.Context())
	if err != nil {
		server.respondError(c, err)
		return
	}
	server.publicCacheControl(c)
	c.JSON(http.StatusOK, matchupList{Matchups: nonNil(payloads)})
}

func nonNil(payloads []matchups.Payload) []matchups.Payload {
	if payloads == nil {
		return []matchups.Payload{}
	}
	return payloads
}
