package network

import (
	"fmt"
	"strings"

	"github.com/oneconcern/scope/pkg/errors"
)

// Numeric codes of remote failures
const (
	CodeOK                    = 0
	CodeUnexpected            = 1
	CodeComponentNotFound     = 127
	CodePermissionDenied      = 128
	CodeRemoteScopeNotFound   = 129
	CodePermissionDeniedAlt   = 130
	CodeMergeConflictOnRemote = 131
	CodeCustomError           = 132
	CodeOldClientVersion      = 133
	CodeActionNotFound        = 135
	CodeClientIDInUse         = 136
	CodeServerIsBusy          = 137
	CodeLaneNotFound          = 138
)

var (
	// ErrInvalidHost is returned when a remote host is neither a ws(s):// url, a file:// url nor an absolute path
	ErrInvalidHost = errors.New("invalid remote host")

	// ErrConnection is returned when the remote cannot be reached
	ErrConnection = errors.New("cannot connect to remote")
)

// IDAndVersions lists the versions of a component conflicting on the remote
type IDAndVersions struct {
	ID       string   `json:"id"`
	Versions []string `json:"versions"`
}

// IDNeedUpdate is a component whose local copy is behind the remote
type IDNeedUpdate struct {
	ID   string `json:"id"`
	Lane string `json:"lane,omitempty"`
}

// ErrorPayload is the structured error sent along a failure code
type ErrorPayload struct {
	Message                     string          `json:"message,omitempty"`
	ID                          string          `json:"id,omitempty"`
	Name                        string          `json:"name,omitempty"`
	ClientID                    string          `json:"clientId,omitempty"`
	IdsAndVersionsWithConflicts []IDAndVersions `json:"idsAndVersionsWithConflicts,omitempty"`
	IdsNeedUpdate               []IDNeedUpdate  `json:"idsNeedUpdate,omitempty"`
	QueueSize                   int             `json:"queueSize,omitempty"`
	CurrentExportID             string          `json:"currentExportId,omitempty"`
	ScopeName                   string          `json:"scopeName,omitempty"`
	LaneName                    string          `json:"laneName,omitempty"`
}

// ComponentNotFoundError (127)
type ComponentNotFoundError struct {
	ID string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("error: component %q was not found", e.ID)
}

// PermissionDeniedError (128, 130)
type PermissionDeniedError struct {
	Scope string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("error: permission to scope %s was denied", e.Scope)
}

// RemoteScopeNotFoundError (129)
type RemoteScopeNotFoundError struct {
	Name string
}

func (e *RemoteScopeNotFoundError) Error() string {
	return fmt.Sprintf("error: remote scope %q was not found", e.Name)
}

// MergeConflictOnRemoteError (131)
type MergeConflictOnRemoteError struct {
	IdsAndVersionsWithConflicts []IDAndVersions
	IdsNeedUpdate               []IDNeedUpdate
}

func (e *MergeConflictOnRemoteError) Error() string {
	var b strings.Builder
	if len(e.IdsAndVersionsWithConflicts) > 0 {
		b.WriteString("error: merge conflict occurred when exporting the component(s):")
		for _, c := range e.IdsAndVersionsWithConflicts {
			fmt.Fprintf(&b, " %s (versions: %s)", c.ID, strings.Join(c.Versions, ", "))
		}
		b.WriteString(" to the remote scope.\n")
	}
	if len(e.IdsNeedUpdate) > 0 {
		b.WriteString("error: export failed, the remote has newer versions of:")
		for _, c := range e.IdsNeedUpdate {
			b.WriteString(" " + c.ID)
		}
		b.WriteString(".\nimport the components and try again.")
	}
	if b.Len() == 0 {
		return "error: merge conflict on remote"
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// CustomError (132) carries a message produced by the remote
type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

// OldClientVersionError (133)
type OldClientVersionError struct {
	Message string
}

func (e *OldClientVersionError) Error() string {
	return fmt.Sprintf("error: the client is too old for the remote scope: %s", e.Message)
}

// ActionNotFoundError (135)
type ActionNotFoundError struct {
	Name string
}

func (e *ActionNotFoundError) Error() string {
	return fmt.Sprintf("error: action %q was not found on the remote scope", e.Name)
}

// ClientIDInUseError (136)
type ClientIDInUseError struct {
	ClientID string
}

func (e *ClientIDInUseError) Error() string {
	return fmt.Sprintf("error: client id %q is already in use by another export", e.ClientID)
}

// ServerIsBusyError (137) is returned while the remote holds the pending export of another client
type ServerIsBusyError struct {
	QueueSize       int
	CurrentExportID string
}

func (e *ServerIsBusyError) Error() string {
	return fmt.Sprintf("error: the server is busy exporting from other clients. total clients in the queue: %d. "+
		"current export id: %q. try again later", e.QueueSize, e.CurrentExportID)
}

// LaneNotFoundError (138)
type LaneNotFoundError struct {
	ScopeName string
	LaneName  string
}

func (e *LaneNotFoundError) Error() string {
	return fmt.Sprintf("lane %q was not found in scope %q", e.LaneName, e.ScopeName)
}

// UnexpectedNetworkError is the fallback for any unknown code
type UnexpectedNetworkError struct {
	Code    int
	Message string
}

func (e *UnexpectedNetworkError) Error() string {
	return fmt.Sprintf("unexpected network error (code %d): %s", e.Code, e.Message)
}

// ErrorFromCode maps a failure code and its payload to a typed error.
//
// The mapping is total: any unknown code yields an *UnexpectedNetworkError.
// raw is the unparsed message of the remote, used when the payload lacks details.
func ErrorFromCode(code int, payload *ErrorPayload, remotePath, raw string) error {
	p := payload
	if p == nil {
		p = &ErrorPayload{}
	}
	orRaw := func(s string) string {
		if s != "" {
			return s
		}
		return raw
	}

	switch code {
	case CodeComponentNotFound:
		return &ComponentNotFoundError{ID: orRaw(p.ID)}
	case CodePermissionDenied, CodePermissionDeniedAlt:
		return &PermissionDeniedError{Scope: remotePath}
	case CodeRemoteScopeNotFound:
		return &RemoteScopeNotFoundError{Name: orRaw(p.Name)}
	case CodeMergeConflictOnRemote:
		return &MergeConflictOnRemoteError{
			IdsAndVersionsWithConflicts: p.IdsAndVersionsWithConflicts,
			IdsNeedUpdate:               p.IdsNeedUpdate,
		}
	case CodeCustomError:
		return &CustomError{Message: orRaw(p.Message)}
	case CodeOldClientVersion:
		return &OldClientVersionError{Message: orRaw(p.Message)}
	case CodeActionNotFound:
		return &ActionNotFoundError{Name: orRaw(p.Name)}
	case CodeClientIDInUse:
		return &ClientIDInUseError{ClientID: orRaw(p.ClientID)}
	case CodeServerIsBusy:
		return &ServerIsBusyError{QueueSize: p.QueueSize, CurrentExportID: p.CurrentExportID}
	case CodeLaneNotFound:
		return &LaneNotFoundError{ScopeName: p.ScopeName, LaneName: p.LaneName}
	default:
		return &UnexpectedNetworkError{Code: code, Message: orRaw(p.Message)}
	}
}

// CodeFromError maps an error to its failure code and payload, for the remote side of the protocol
func CodeFromError(err error) (int, *ErrorPayload) {
	var (
		notFound     *ComponentNotFoundError
		denied       *PermissionDeniedError
		scopeMissing *RemoteScopeNotFoundError
		conflict     *MergeConflictOnRemoteError
		custom       *CustomError
		old          *OldClientVersionError
		noAction     *ActionNotFoundError
		inUse        *ClientIDInUseError
		busy         *ServerIsBusyError
		noLane       *LaneNotFoundError
		unexpected   *UnexpectedNetworkError
	)

	switch {
	case err == nil:
		return CodeOK, nil
	case errors.As(err, &notFound):
		return CodeComponentNotFound, &ErrorPayload{ID: notFound.ID, Message: err.Error()}
	case errors.As(err, &denied):
		return CodePermissionDenied, &ErrorPayload{Message: err.Error()}
	case errors.As(err, &scopeMissing):
		return CodeRemoteScopeNotFound, &ErrorPayload{Name: scopeMissing.Name, Message: err.Error()}
	case errors.As(err, &conflict):
		return CodeMergeConflictOnRemote, &ErrorPayload{
			IdsAndVersionsWithConflicts: conflict.IdsAndVersionsWithConflicts,
			IdsNeedUpdate:               conflict.IdsNeedUpdate,
			Message:                     err.Error(),
		}
	case errors.As(err, &custom):
		return CodeCustomError, &ErrorPayload{Message: custom.Message}
	case errors.As(err, &old):
		return CodeOldClientVersion, &ErrorPayload{Message: old.Message}
	case errors.As(err, &noAction):
		return CodeActionNotFound, &ErrorPayload{Name: noAction.Name, Message: err.Error()}
	case errors.As(err, &inUse):
		return CodeClientIDInUse, &ErrorPayload{ClientID: inUse.ClientID, Message: err.Error()}
	case errors.As(err, &busy):
		return CodeServerIsBusy, &ErrorPayload{QueueSize: busy.QueueSize, CurrentExportID: busy.CurrentExportID, Message: err.Error()}
	case errors.As(err, &noLane):
		return CodeLaneNotFound, &ErrorPayload{ScopeName: noLane.ScopeName, LaneName: noLane.LaneName, Message: err.Error()}
	case errors.As(err, &unexpected):
		return CodeUnexpected, &ErrorPayload{Message: unexpected.Message}
	default:
		return CodeUnexpected, &ErrorPayload{Message: err.Error()}
	}
}
