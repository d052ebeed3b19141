package models

// Requests for the HTTP endpoints. Defined in domain for consistency and reuse.

type AnalysisRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,max=12"`
	User   string `query:"user" json:"user" default:"anonymous" validate:"max=64"`
}

type LatestRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,max=12"`
}

type HistoryRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,max=12"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	From   string `query:"from" json:"from"`
}

type StartScanRequest struct {
	Ticker string `json:"ticker" validate:"required,max=12"`
	User   string `json:"user" default:"anonymous" validate:"max=64"`
}

type CongressRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,max=12"`
	Page   int    `query:"page" json:"page" default:"1" validate:"gte=1"`
	Size   int    `query:"size" json:"size" default:"20" validate:"gte=1,lte=100"`
}

type ClassifyRequest struct {
	Score int `query:"score" json:"score"`
}

type WeightsRequest struct {
	User string `param:"user" json:"-" validate:"required,max=64"`
}

type ScanRequest struct {
	ID string `param:"id" json:"-" validate:"required,uuid"`
}

type UpdateWeightsRequest struct {
	User        string `param:"user" json:"-" validate:"required,max=64"`
	MLModel     *int   `json:"ml-model" validate:"omitempty,gte=0"`
	NewsOutlets *int   `json:"news-outlets" validate:"omitempty,gte=0"`
	Congress    *int   `json:"congress" validate:"omitempty,gte=0"`
	SocialMedia *int   `json:"social-media" validate:"omitempty,gte=0"`
}

// Apply overlays the provided fields on top of current weights.
func (r *UpdateWeightsRequest) Apply(current SourceWeights) SourceWeights {
	if r.MLModel != nil {
		current.MLModel = *r.MLModel
	}
	if r.NewsOutlets != nil {
		current.NewsOutlets = *r.NewsOutlets
	}
	if r.Congress != nil {
		current.Congress = *r.Congress
	}
	if r.SocialMedia != nil {
		current.SocialMedia = *r.SocialMedia
	}
	return current
}
