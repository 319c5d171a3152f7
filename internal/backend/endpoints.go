package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
)

// Stats returns the listing counters.
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	// Answers are either flat or nested under "stats".
	var res struct {
		Success *bool        `json:"success"`
		Message string       `json:"message"`
		Nested  *model.Stats `json:"stats"`
		model.Stats
	}
	if err := c.call(ctx, "/activities/stats", struct{}{}, &res); err != nil {
		return model.Stats{}, err
	}
	if res.Success != nil && !*res.Success {
		return model.Stats{}, &RPCError{Message: res.Message}
	}
	if res.Nested != nil {
		return *res.Nested, nil
	}
	return res.Stats, nil
}

type searchFilters struct {
	GroupID string `json:"group_id"`
	State   string `json:"state"`
}

type searchParams struct {
	Search  string        `json:"search"`
	Filters searchFilters `json:"filters"`
	Limit   int           `json:"limit"`
}

// Search runs an activity search. The result may be empty, never nil.
func (c *Client) Search(ctx context.Context, q model.SearchQuery) ([]model.ActivitySummary, error) {
	params := searchParams{
		Search:  q.Term,
		Filters: searchFilters{GroupID: q.GroupID, State: q.State},
		Limit:   q.Limit,
	}

	var raw json.RawMessage
	if err := c.call(ctx, "/activities/search", params, &raw); err != nil {
		return nil, err
	}

	results := []model.ActivitySummary{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("decode search results: %w", err)
		}
		return results, nil
	}

	var env struct {
		Success *bool                   `json:"success"`
		Error   string                  `json:"error"`
		Message string                  `json:"message"`
		Results []model.ActivitySummary `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return nil, &RPCError{Message: msg}
	}
	if env.Results != nil {
		results = env.Results
	}
	return results, nil
}

// CheckEligibility asks whether the session's member may register for an
// activity. A refusal is a successful call with Success=false.
func (c *Client) CheckEligibility(ctx context.Context, activityID int64) (model.EligibilityResult, error) {
	var res model.EligibilityResult
	path := model.ActivityPath(activityID) + "/check_eligibility"
	if err := c.call(ctx, path, struct{}{}, &res); err != nil {
		return model.EligibilityResult{}, err
	}
	return res, nil
}

// CotisationStatus returns the current state of one cotisation and its proofs.
func (c *Client) CotisationStatus(ctx context.Context, cotisationID int64) (model.StatusResponse, error) {
	// Older website versions answer {success, data:{...}} without proofs.
	var res struct {
		model.StatusResponse
		Data  *model.CotisationStatus `json:"data"`
		Error string                  `json:"error"`
	}
	path := "/my/cotisation/" + strconv.FormatInt(cotisationID, 10) + "/status"
	if err := c.call(ctx, path, struct{}{}, &res); err != nil {
		return model.StatusResponse{}, err
	}
	out := res.StatusResponse
	if out.Cotisation.State == "" && res.Data != nil {
		out.Cotisation = *res.Data
	}
	if out.Message == "" {
		out.Message = res.Error
	}
	return out, nil
}
