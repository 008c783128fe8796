package searchcache

import (
	"time"

	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
)

type scoredDTO struct {
	Entry    entry.Entry     `json:"entry"`
	Score    float64         `json:"relevance_score"`
	Text     string          `json:"extracted_text"`
	Metadata *entry.Metadata `json:"metadata,omitempty"`
}

type responseDTO struct {
	Results    []scoredDTO `json:"results"`
	TotalCount int         `json:"total_count"`
	ExecMillis int64       `json:"execution_time_ms"`
	Error      string      `json:"error,omitempty"`
}

func toDTO(r result.Response) responseDTO {
	results := r.Results()
	out := responseDTO{
		Results:    make([]scoredDTO, 0, len(results)),
		TotalCount: r.TotalCount(),
		ExecMillis: r.ExecutionTime().Milliseconds(),
		Error:      r.Error(),
	}
	for i := range results {
		s := &results[i]
		out.Results = append(out.Results, scoredDTO{
			Entry:    s.Entry(),
			Score:    s.Score(),
			Text:     s.Text(),
			Metadata: s.Metadata(),
		})
	}
	return out
}

func fromDTO(d responseDTO) result.Response {
	results := make([]result.Scored, 0, len(d.Results))
	for _, s := range d.Results {
		results = append(results, result.New(s.Entry, s.Score, s.Text, s.Metadata))
	}
	resp := result.NewResponse(results, d.TotalCount, time.Duration(d.ExecMillis)*time.Millisecond)
	if d.Error != "" {
		resp = resp.WithError(d.Error)
	}
	return resp
}
