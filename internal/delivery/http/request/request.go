package request

import "github.com/user/places-extractor/internal/entity"

// ExtractRequest is the body of both the synchronous and the queued extraction endpoints.
type ExtractRequest struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	VisitWebsites bool   `json:"visit_websites"`
	Force         bool   `json:"force"` // bypass the result cache; ignored for queued jobs
}

func (r ExtractRequest) Entity() entity.ExtractionRequest {
	return entity.ExtractionRequest{
		Query:                 r.Query,
		TargetCount:           r.MaxResults,
		VisitSecondarySources: r.VisitWebsites,
	}
}
