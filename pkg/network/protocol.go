package network

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/oneconcern/scope/pkg/model"
)

// CurrentFetchSchema is the version of the fetch protocol spoken by this client.
// Remotes refuse clients announcing a schema they do not know.
const CurrentFetchSchema = "0.0.3"

// Protocol actions
const (
	ActionDescribe       = "describe"
	ActionFetch          = "fetch"
	ActionPushMany       = "push-many"
	ActionList           = "list"
	ActionDeleteMany     = "delete-many"
	ActionListLanes      = "list-lanes"
	ActionHasObjects     = "has-objects"
	ActionLog            = "log"
	ActionLatestVersions = "latest-versions"

	// ActionGeneric runs a named action registered on the remote
	ActionGeneric = "action"

	// ExportPersist is the generic action persisting the pending objects of an export
	ExportPersist = "export-persist"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is one action sent to a remote scope
type Request struct {
	Action   string                 `json:"action"`
	Scope    string                 `json:"scope,omitempty"`
	ClientID string                 `json:"clientId,omitempty"`
	Payload  jsoniter.RawMessage    `json:"payload,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// Response of a remote scope. Code 0 means success.
type Response struct {
	Code    int                 `json:"code"`
	Payload jsoniter.RawMessage `json:"payload,omitempty"`
	Error   *ErrorPayload       `json:"error,omitempty"`
	Message string              `json:"message,omitempty"`
}

// NewResponse builds a successful response
func NewResponse(result interface{}) *Response {
	if result == nil {
		return &Response{Code: CodeOK}
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return NewErrorResponse(err)
	}
	return &Response{Code: CodeOK, Payload: payload}
}

// NewErrorResponse builds a failure response
func NewErrorResponse(err error) *Response {
	code, payload := CodeFromError(err)
	return &Response{Code: code, Error: payload, Message: err.Error()}
}

// DecodePayload unmarshals the payload of a request
func (r *Request) DecodePayload(target interface{}) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(r.Payload, target)
}

// FetchType tells what the ids of a fetch refer to
type FetchType string

// Fetch types
const (
	FetchComponents FetchType = "component"
	FetchLanes      FetchType = "lane"
	FetchObjects    FetchType = "object"
)

// FetchOptions parameterize a fetch
type FetchOptions struct {
	Type                  FetchType     `json:"type"`
	WithoutDependencies   bool          `json:"withoutDependencies,omitempty"`
	IncludeVersionHistory bool          `json:"includeVersionHistory,omitempty"`
	LaneID                *model.LaneID `json:"laneId,omitempty"`
	FetchSchema           string        `json:"fetchSchema"`
}

// FetchRequest is the payload of a fetch
type FetchRequest struct {
	IDs     []string     `json:"ids"`
	Options FetchOptions `json:"options"`
}

// PushOptions parameterize a push
type PushOptions struct {
	ClientID string `json:"clientId"`

	// Persist writes the objects right away. Otherwise they are kept pending until export-persist.
	Persist bool `json:"persist,omitempty"`
}

// PushRequest is the payload of a push-many
type PushRequest struct {
	Objects ObjectList  `json:"objects"`
	Options PushOptions `json:"options"`
}

// ListRequest is the payload of a list
type ListRequest struct {
	NamespacesUsingWildcards string `json:"namespacesUsingWildcards,omitempty"`
	IncludeDeleted           bool   `json:"includeDeleted,omitempty"`
}

// ListScopeResult describes a component of a remote scope
type ListScopeResult struct {
	ID      model.ComponentID `json:"id"`
	Removed bool              `json:"removed,omitempty"`
}

// DeleteManyRequest is the payload of a delete-many
type DeleteManyRequest struct {
	IDs   []string `json:"ids"`
	Force bool     `json:"force,omitempty"`
	Lanes bool     `json:"lanes,omitempty"`
}

// RemovedObjects reports the outcome of a delete-many
type RemovedObjects struct {
	RemovedComponentIDs []string            `json:"removedComponentIds"`
	MissingComponents   []string            `json:"missingComponents"`
	RemovedLanes        []string            `json:"removedLanes"`
	DependentBits       map[string][]string `json:"dependentBits,omitempty"`
}

// ListLanesRequest is the payload of a list-lanes
type ListLanesRequest struct {
	Name      string `json:"name,omitempty"`
	MergeData bool   `json:"mergeData,omitempty"`
}

// LaneComponentData is the head of a component on a lane
type LaneComponentData struct {
	ID   string    `json:"id"`
	Head model.Ref `json:"head"`
}

// LaneData describes a lane of a remote scope
type LaneData struct {
	Name       string              `json:"name"`
	Scope      string              `json:"scope"`
	Hash       model.Ref           `json:"hash"`
	Components []LaneComponentData `json:"components"`
	IsMerged   *bool               `json:"isMerged,omitempty"`
}

// ComponentLog is one entry of the history of a component
type ComponentLog struct {
	Hash     model.Ref   `json:"hash"`
	Tag      string      `json:"tag,omitempty"`
	Username string      `json:"username,omitempty"`
	Email    string      `json:"email,omitempty"`
	Message  string      `json:"message,omitempty"`
	Date     time.Time   `json:"date"`
	Parents  []model.Ref `json:"parents,omitempty"`
}

// ScopeDescriptor describes a remote scope
type ScopeDescriptor struct {
	Name string `json:"name"`
}

// ExportPersistOptions are the options of the export-persist action
type ExportPersistOptions struct {
	ClientID string `json:"clientId"`
}

// GenericActionRequest is the payload of a generic action
type GenericActionRequest struct {
	Name    string              `json:"name"`
	Options jsoniter.RawMessage `json:"options,omitempty"`
}
