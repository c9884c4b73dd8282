package dto

type QueryRequest struct {
	Question    string `form:"question" json:"question"`
	Tag         string `form:"tag" json:"tag"`
	StyleNeeded bool   `form:"style_needed" json:"style_needed"`
}

type StartSessionRequest struct {
	SessionId string `form:"session_id" json:"session_id" validate:"max=200"`
}

type UploadRequest struct {
	Tag string `form:"tag" json:"tag"`
}

type FilterFilesRequest struct {
	Query string `query:"q"`
}

type SearchFilesRequest struct {
	Tag string `form:"tag" json:"tag"`
}

type DeleteFilesRequest struct {
	Confirm bool `form:"confirm" json:"confirm"`
}

type DeleteFilesResponse struct {
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type StartSessionResponse struct {
	SessionId string `json:"session_id"`
}

type HealthResponse struct {
	Status       string                 `json:"status"`
	Backend      string                 `json:"backend"`
	BackendError string                 `json:"backend_error,omitempty"`
	BackendInfo  map[string]interface{} `json:"backend_info,omitempty"`
	Consoles     int                    `json:"consoles"`
}
