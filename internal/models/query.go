package models

// SearchHit is a single vector store match: the stored chunk text, its source
// metadata, and the store's similarity score. Hits come back ranked by the
// store and that ordering is authoritative.
type SearchHit struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score"`
}

// QueryResult is one entry of the ranked context set returned by the
// retrieval service. Ephemeral; never persisted.
type QueryResult struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	QueryText string `json:"query_text"`
}

// QueryResponseMetadata is one source citation in a query response.
type QueryResponseMetadata struct {
	DocName string `json:"doc_name"`
	Page    int    `json:"page"`
}

// QueryResponse is the body returned by POST /api/query. Paragraph is a
// nested list (one inner list of chunk texts per query) for compatibility
// with clients of the previous API.
type QueryResponse struct {
	Answer    string                  `json:"answer"`
	Metadata  []QueryResponseMetadata `json:"metadata"`
	Paragraph [][]string              `json:"paragraph"`
}
