package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Pair with NewSubSystemError for subsystem-specific codes.
var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrDuplicate     = fmt.Errorf("duplicate")
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrLimitReached  = fmt.Errorf("limit reached")
	ErrDisabled      = fmt.Errorf("disabled")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
)

// Sentinel errors for the domain layer.
var (
	// Cycle command rejections.
	ErrNoEnabledLinks = fmt.Errorf("no enabled links")
	ErrLinkNotEnabled = fmt.Errorf("link is not enabled")
	ErrAlreadyRunning = fmt.Errorf("cycle already running")
	ErrCycleActive    = fmt.Errorf("links are locked while a cycle is active")

	// Collaborator failures. Never fatal to a running cycle.
	ErrDisplayOpen  = fmt.Errorf("display surface open failed")
	ErrCollaborator = fmt.Errorf("collaborator call failed")
	ErrNoSuggestion = fmt.Errorf("no suggestions returned")
	ErrPrivateHost  = fmt.Errorf("host resolves to a private address")

	ErrStore       = fmt.Errorf("store operation failed")
	ErrConfigLoad  = fmt.Errorf("failed to load configuration")
	ErrDecryption  = fmt.Errorf("decryption failed")
	ErrEncryption  = fmt.Errorf("encryption operation failed")
	ErrLinkUnknown = fmt.Errorf("link: %w", ErrNotFound)

	// Gateway / RPC errors.
	ErrGatewayAuthFailed = fmt.Errorf("gateway: %w", ErrAuthInvalid)
	ErrRPCMethodNotFound = fmt.Errorf("rpc method not found")
	ErrRPCInvalidPayload = fmt.Errorf("rpc payload invalid")

	// Resilience errors.
	ErrRateLimit   = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid = fmt.Errorf("authentication failed")
	ErrUpstream    = fmt.Errorf("upstream request failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Cycle.Start")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "display", "title"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout)
}

// ErrorCode is a machine-parseable error category, returned to gateway clients.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeNoEnabledLinks    ErrorCode = "NO_ENABLED_LINKS"
	CodeLinkNotEnabled    ErrorCode = "LINK_NOT_ENABLED"
	CodeAlreadyRunning    ErrorCode = "ALREADY_RUNNING"
	CodeCycleActive       ErrorCode = "CYCLE_ACTIVE"
	CodeDisplayOpen       ErrorCode = "DISPLAY_OPEN"
	CodeCollaborator      ErrorCode = "COLLABORATOR"
	CodeNoSuggestion      ErrorCode = "NO_SUGGESTION"
	CodeStore             ErrorCode = "STORE"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeDecryption        ErrorCode = "DECRYPTION"
	CodeEncryption        ErrorCode = "ENCRYPTION"
	CodeLinkNotFound      ErrorCode = "LINK_NOT_FOUND"
	CodeGatewayAuth       ErrorCode = "GATEWAY_AUTH"
	CodeRPCMethodNotFound ErrorCode = "RPC_METHOD_NOT_FOUND"
	CodeRPCInvalidPayload ErrorCode = "RPC_INVALID_PAYLOAD"
	CodeRateLimit         ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid       ErrorCode = "AUTH_INVALID"
	CodeUpstream          ErrorCode = "UPSTREAM"
	CodePrivateHost       ErrorCode = "PRIVATE_HOST"

	// Subsystem-specific codes used by subSystemCodeMap.
	CodeDisplayTimeout  ErrorCode = "DISPLAY_TIMEOUT"
	CodeTitleTimeout    ErrorCode = "TITLE_TIMEOUT"
	CodeSuggestTimeout  ErrorCode = "SUGGEST_TIMEOUT"
	CodeLinkInvalid     ErrorCode = "LINK_INVALID"
	CodeSettingsInvalid ErrorCode = "SETTINGS_INVALID"
	CodeSuggestProvider ErrorCode = "SUGGEST_PROVIDER"

	// Category error codes, the fallback when no specific code matches.
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeDuplicate     ErrorCode = "DUPLICATE"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeLimitReached  ErrorCode = "LIMIT_REACHED"
	CodeDisabled      ErrorCode = "DISABLED"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeProviderError ErrorCode = "PROVIDER_ERROR"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:      CodeNotFound,
	ErrDuplicate:     CodeDuplicate,
	ErrTimeout:       CodeTimeout,
	ErrLimitReached:  CodeLimitReached,
	ErrDisabled:      CodeDisabled,
	ErrInvalidInput:  CodeInvalidInput,
	ErrProviderError: CodeProviderError,

	ErrNoEnabledLinks:    CodeNoEnabledLinks,
	ErrLinkNotEnabled:    CodeLinkNotEnabled,
	ErrAlreadyRunning:    CodeAlreadyRunning,
	ErrCycleActive:       CodeCycleActive,
	ErrDisplayOpen:       CodeDisplayOpen,
	ErrCollaborator:      CodeCollaborator,
	ErrNoSuggestion:      CodeNoSuggestion,
	ErrStore:             CodeStore,
	ErrConfigLoad:        CodeConfigLoad,
	ErrDecryption:        CodeDecryption,
	ErrEncryption:        CodeEncryption,
	ErrLinkUnknown:       CodeLinkNotFound,
	ErrGatewayAuthFailed: CodeGatewayAuth,
	ErrRPCMethodNotFound: CodeRPCMethodNotFound,
	ErrRPCInvalidPayload: CodeRPCInvalidPayload,
	ErrRateLimit:         CodeRateLimit,
	ErrAuthInvalid:       CodeAuthInvalid,
	ErrUpstream:          CodeUpstream,
	ErrPrivateHost:       CodePrivateHost,
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific ErrorCodes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrNotFound: {
		"link": CodeLinkNotFound,
	},
	ErrTimeout: {
		"display": CodeDisplayTimeout,
		"title":   CodeTitleTimeout,
		"suggest": CodeSuggestTimeout,
	},
	ErrInvalidInput: {
		"link":     CodeLinkInvalid,
		"settings": CodeSettingsInvalid,
	},
	ErrProviderError: {
		"suggest": CodeSuggestProvider,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	// Specific sentinels first: several of them wrap a category sentinel.
	for sentinel, code := range errorCodeMap {
		if isCategory(sentinel) {
			continue
		}
		if errors.Is(err, sentinel) {
			return code
		}
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

func isCategory(err error) bool {
	_, ok := subSystemCodeMap[err]
	return ok || err == ErrDuplicate || err == ErrLimitReached || err == ErrDisabled
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
// If SubSystem is set, checks the subSystemCodeMap for a specific code.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
