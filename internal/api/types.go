package api

// DatasetInfo describes the dataset behind the server.
type DatasetInfo struct {
	Object string `json:"object"`
	Count  int    `json:"count"`
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	Index  int    `json:"index"`
}

// RecordInfo is the JSON view of a record.
type RecordInfo struct {
	Object string `json:"object"`
	Index  int    `json:"index"`
	Label  string `json:"label"`
	URL    string `json:"url"`
	// Next is the cursor index after the call. Only set by /v1/cursor/next.
	Next *int `json:"next,omitempty"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
