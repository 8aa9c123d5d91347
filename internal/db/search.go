package db

// TagFilter restricts a search to documents whose tag field matches any of
// the given values. Multiple filters combine conjunctively.
type TagFilter struct {
	Field  string
	Values []string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      []TagFilter
	Vector       []float32
	K            int
	ReturnFields []string
	RawScores    bool // return __vector_score as-is (distance) instead of 1-score similarity
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
