package dto

type SearchRequest struct {
	Q              string `json:"q"`
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id"`
}

// Text returns q, falling back to query.
func (r SearchRequest) Text() string {
	if r.Q != "" {
		return r.Q
	}
	return r.Query
}

type HealthResponse struct {
	OK         bool            `json:"ok"`
	Service    string          `json:"service"`
	Knowledge  KnowledgeHealth `json:"knowledge"`
	PlacesKeys int             `json:"places_keys"`
	PlacesVer  string          `json:"places_version,omitempty"`
	Memory     int             `json:"choice_memory"`
}

type KnowledgeHealth struct {
	Configured  bool    `json:"configured"`
	Source      string  `json:"source,omitempty"`
	Count       int     `json:"count"`
	Duplicates  int     `json:"duplicates"`
	LoadedAt    *string `json:"loaded_at,omitempty"`
	LastAttempt *string `json:"last_attempt,omitempty"`
	LastError   string  `json:"last_error,omitempty"`
}

type RefreshResponse struct {
	OK    bool   `json:"ok"`
	Count int    `json:"count,omitempty"`
	Error string `json:"error,omitempty"`
}
