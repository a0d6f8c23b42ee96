package httpserver

import (
	"time"

	"github.com/helixir/bibliographic-ingest/internal/pipeline"
	"github.com/helixir/bibliographic-ingest/internal/tracker"
)

// Run response types for JSON serialization.

type runResponse struct {
	RunID            string          `json:"run_id"`
	Source           string          `json:"source"`
	DateFrom         string          `json:"date_from,omitempty"`
	DateTo           string          `json:"date_to,omitempty"`
	AdminSet         string          `json:"admin_set"`
	StartedAt        time.Time       `json:"started_at"`
	RestartedAt      *time.Time      `json:"restarted_at,omitempty"`
	Stages           []stageResponse `json:"stages"`
	DedupCompleted   bool            `json:"dedup_completed"`
	NotificationSent bool            `json:"notification_sent"`
	Completed        bool            `json:"completed"`
	Outcomes         map[string]int  `json:"outcomes,omitempty"`
}

type stageResponse struct {
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Cursor   int            `json:"cursor"`
	Total    int            `json:"total,omitempty"`
	Counters map[string]int `json:"counters,omitempty"`
}

func (s *Server) runToResponse(p tracker.Progress) runResponse {
	resp := runResponse{
		RunID:            p.RunID,
		Source:           p.Source,
		DateFrom:         p.DateRange.From,
		DateTo:           p.DateRange.To,
		AdminSet:         p.AdminSet,
		StartedAt:        p.StartTime,
		RestartedAt:      p.RestartTime,
		Stages:           make([]stageResponse, 0, len(p.Stages)),
		DedupCompleted:   p.DedupCompleted,
		NotificationSent: p.NotificationSent,
	}
	// The report is written only after every candidate is processed.
	resp.Completed = p.NotificationSent || p.OutputPaths[pipeline.OutputReport] != ""
	for _, name := range p.StageNames() {
		st := p.Stages[name]
		resp.Stages = append(resp.Stages, stageResponse{
			Name:     name,
			Status:   string(st.Status),
			Cursor:   st.Cursor,
			Total:    st.Total,
			Counters: st.Counters,
		})
	}
	if s.outcomes != nil {
		resp.Outcomes = make(map[string]int)
		for cat, n := range s.outcomes.Counts() {
			resp.Outcomes[string(cat)] = n
		}
	}
	return resp
}
