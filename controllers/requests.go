package controllers

import (
	"bytes"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"Scrumble/models"
	"Scrumble/utils/apperror"
)

type voteRequest struct {
	MatchupID   string `json:"matchup_id"`
	Side        string `json:"side"`
	Fingerprint string `json:"fingerprint"`
}

type matchupIDRequest struct {
	MatchupID string `json:"matchup_id"`
}

type bulkRequest struct {
	MatchupIDs []string `json:"matchup_ids"`
}

type resetVotesRequest struct {
	MatchupID        string `json:"matchup_id"`
	IncludeSynthetic bool   `json:"include_synthetic"`
}

type createMatchupRequest struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Category     string        `json:"category"`
	LeftEntryID  string        `json:"left_entry_id"`
	RightEntryID string        `json:"right_entry_id"`
	Active       bool          `json:"active"`
	Cadence      string        `json:"cadence"`
	Message      string        `json:"message"`
	StartsAt     string        `json:"starts_at"`
	EndsAt       string        `json:"ends_at"`
	Left         *models.Entry `json:"left"`
	Right        *models.Entry `json:"right"`
}

// createMatchupBody accepts the flat shape or the matchup nested under
// "matchup" with the entries beside it.
type createMatchupBody struct {
	createMatchupRequest
	Matchup *createMatchupRequest `json:"matchup"`
}

func (b createMatchupBody) request() createMatchupRequest {
	if b.Matchup == nil {
		return b.createMatchupRequest
	}
	req := *b.Matchup
	if req.Left == nil {
		req.Left = b.Left
	}
	if req.Right == nil {
		req.Right = b.Right
	}
	return req
}

// updateMatchupRequest uses pointers so an absent field is left alone while
// an empty starts_at or ends_at clears the bound.
type updateMatchupRequest struct {
	MatchupID string  `json:"matchup_id"`
	StartsAt  *string `json:"starts_at"`
	EndsAt    *string `json:"ends_at"`
	Cadence   *string `json:"cadence"`
	Message   *string `json:"message"`
	Active    *bool   `json:"active"`
}

// bindBody decodes a JSON body into dst. An empty body leaves dst zeroed.
func bindBody(c *gin.Context, dst any) error {
	raw, err := c.GetRawData()
	if err != nil {
		return apperror.Validation(apperror.CodeInvalidBody, "Could not read request body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperror.Validation(apperror.CodeInvalidBody, "Request body must be a JSON object")
	}
	return nil
}
