package api

// DocumentInfo is a listing entry for one indexed document.
type DocumentInfo struct {
	Path        string   `json:"path"`
	Markdown    bool     `json:"markdown"`
	Checksum    string   `json:"checksum"`
	Description string   `json:"description,omitempty"`
	Globs       []string `json:"globs,omitempty"`
	AlwaysApply bool     `json:"alwaysApply,omitempty"`
	LinkCount   int      `json:"linkCount"`
	Error       string   `json:"error,omitempty"`
}

// ContextItemView is the transport form of an assembled context item.
type ContextItemView struct {
	Path       string `json:"path"`
	Reason     string `json:"reason"`
	LinkedFrom string `json:"linkedFrom,omitempty"`
	Anchor     string `json:"anchor,omitempty"`
	Embeds     int    `json:"embeds"`
}

// ContextResponse is the JSON payload of GET /api/context.
type ContextResponse struct {
	Items []ContextItemView `json:"items"`
}

// GraphNode is one node in the graph view.
type GraphNode struct {
	Path     string `json:"path"`
	Markdown bool   `json:"markdown"`
	Failed   bool   `json:"failed"`
}

// GraphEdge is one outbound link in the graph view.
type GraphEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Anchor string `json:"anchor"`
	Embed  string `json:"embed"`
}

// GraphView is the JSON payload of GET /api/graph.
type GraphView struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// DocumentDetail is the JSON payload of GET /api/documents/*.
type DocumentDetail struct {
	Path        string   `json:"path"`
	Markdown    bool     `json:"markdown"`
	Content     string   `json:"content"`
	Description string   `json:"description,omitempty"`
	Globs       []string `json:"globs,omitempty"`
	AlwaysApply bool     `json:"alwaysApply,omitempty"`
	Error       string   `json:"error,omitempty"`
}
