// File: api/schemas/browser.go
package schemas

// WorkflowState is the coarse phase of a browsing session. Tools are gated on
// the current state so a caller cannot, for example, click an element on a
// page it has never inspected.
type WorkflowState int

const (
	StateUninitialized WorkflowState = iota
	StateBrowserActive
	StatePageLoaded
	StateContentAnalyzed
	StateInteractionReady
)

func (s WorkflowState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateBrowserActive:
		return "BROWSER_ACTIVE"
	case StatePageLoaded:
		return "PAGE_LOADED"
	case StateContentAnalyzed:
		return "CONTENT_ANALYZED"
	case StateInteractionReady:
		return "INTERACTION_READY"
	default:
		return "UNKNOWN"
	}
}

// Strategy identifies which locator strategy produced a match.
type Strategy string

const (
	StrategyPrimary    Strategy = "primary"
	StrategySemantic   Strategy = "semantic"
	StrategyStructural Strategy = "structural"
	StrategyAttribute  Strategy = "attribute"
)

// Strategies is the fixed resolution order. Earlier entries always win over
// later ones, regardless of match quality.
var Strategies = []Strategy{StrategyPrimary, StrategySemantic, StrategyStructural, StrategyAttribute}

// LocatorResult describes a successful element resolution. It is transient:
// produced by one resolution call and consumed immediately by the handler.
type LocatorResult struct {
	Selector string   `json:"selector"`
	Strategy Strategy `json:"strategy"`
}

// SelectorProbe is the outcome of testing a single CSS selector against the
// live DOM.
type SelectorProbe struct {
	Count        int  `json:"count"`
	Visible      bool `json:"visible"`
	Interactable bool `json:"interactable"`
}

// BoundingRect is an element's viewport-relative box.
type BoundingRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SelectorCandidate is one ranked result from selector discovery.
// Lists of candidates are always sorted by Confidence descending, ties broken
// by document order.
type SelectorCandidate struct {
	Selector    string       `json:"selector"`
	MatchedText string       `json:"matchedText"`
	TagName     string       `json:"tagName"`
	Confidence  int          `json:"confidence"`
	Rect        BoundingRect `json:"rect"`
}

// ContentChunk is the size-bounded result of a content extraction.
// Truncated is true iff the full content's estimated token count exceeded the
// configured limit at extraction time; TotalEstimatedTokens always reports the
// full (pre-truncation) estimate.
type ContentChunk struct {
	Text                 string `json:"text"`
	TotalEstimatedTokens int    `json:"totalEstimatedTokens"`
	Truncated            bool   `json:"isTruncated"`
}

// ImagePayload carries screenshot bytes plus capture metadata.
type ImagePayload struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
	Width    int64  `json:"width,omitempty"`
	Height   int64  `json:"height,omitempty"`
	Path     string `json:"path,omitempty"`
}
