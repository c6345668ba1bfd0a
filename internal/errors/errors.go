// Package errors is the error vocabulary of sdkbridge. It re-exports the
// standard library helpers so call sites import a single errors package,
// and layers three things on top:
//
//   - sentinel values grouped by subsystem (ErrSdkNotFound,
//     ErrDeviceOffline, ...) for errors.Is checks across package
//     boundaries
//   - domain error types carrying structured context: SdkError for SDK
//     discovery and parsing, BridgeError for the adb server lifecycle,
//     DeviceError for attached devices
//   - semantic error types for shapes that recur everywhere:
//     NotFoundError, AlreadyExistsError, ValidationError, TimeoutError
//
// Every typed error satisfies AppError, which classifies it by severity,
// retryability, and whether its text is fit for end users.
//
// Constructors take a message and an optional cause; context is chained
// on afterward:
//
//	err := errors.NewBridgeError("restart failed", cause).
//		WithAdbPath("/sdk/platform-tools/adb").
//		WithAttempt(2)
//
// Matching goes through the standard mechanisms. A typed error matches
// its own type and anything its cause chain matches:
//
//	errors.Is(err, errors.ErrBridgeFailed)
//
//	var bridgeErr *errors.BridgeError
//	errors.As(err, &bridgeErr)
//
// Code that decides behavior rather than wording uses the classifiers
// IsRetryable, IsUserFacing, and GetSeverity.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stdlib re-exports, so importing this package is enough everywhere.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity grades how much attention an error deserves when logged or
// surfaced.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

var severityNames = [...]string{"debug", "info", "warning", "error", "critical"}

// String returns the lowercase severity name, or "unknown" for values
// outside the defined range.
func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// -----------------------------------------------------------------------------
// Sentinels
// -----------------------------------------------------------------------------

// SDK discovery and parsing.
var (
	// ErrSdkNotFound indicates that no valid SDK exists at the given path.
	ErrSdkNotFound = New("android sdk not found")
	// ErrTargetNotFound indicates that a target could not be found in the SDK.
	ErrTargetNotFound = New("target not found")
	// ErrAdbNotFound indicates that the SDK contains no adb binary.
	ErrAdbNotFound = New("adb binary not found")
)

// Server lifecycle.
var (
	// ErrBridgeTimeout indicates that the bridge did not connect within the wait ceiling.
	ErrBridgeTimeout = New("bridge connection timed out")
	// ErrBridgeFailed indicates that the bridge connection attempt failed.
	ErrBridgeFailed = New("bridge connection failed")
	// ErrConnectInProgress indicates that a connection attempt is already running.
	ErrConnectInProgress = New("connection attempt already in progress")
	// ErrServerLocked indicates that another process holds the server lock.
	ErrServerLocked = New("adb server is locked by another process")
)

// Attached devices.
var (
	// ErrDeviceNotFound indicates that a device could not be found.
	ErrDeviceNotFound = New("device not found")
	// ErrDeviceOffline indicates that a device is attached but offline.
	ErrDeviceOffline = New("device is offline")
	// ErrDeviceUnauthorized indicates that a device has not authorized this host.
	ErrDeviceUnauthorized = New("device is unauthorized")
)

// Cross-cutting.
var (
	// ErrTimeout marks work that ran out of time.
	ErrTimeout = New("operation timed out")
	// ErrCanceled marks work the caller gave up on.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput marks arguments that failed validation.
	ErrInvalidInput = New("invalid input")
	// ErrOperationFailed is the catch-all when nothing more specific applies.
	ErrOperationFailed = New("operation failed")
)

// -----------------------------------------------------------------------------
// AppError
// -----------------------------------------------------------------------------

// AppError is implemented by every typed error in this package. It layers
// classification onto the standard error contract so logging and the CLI
// can react to an error without switching on concrete types.
type AppError interface {
	error

	// Unwrap returns the cause, or nil.
	Unwrap() error

	// Is reports whether this error matches target, consulting the
	// cause chain.
	Is(target error) bool

	// Severity grades the error for logging.
	Severity() Severity

	// IsRetryable reports whether the failed operation may succeed if
	// simply tried again.
	IsRetryable() bool

	// IsUserFacing reports whether the message is written for end users
	// rather than for logs.
	IsUserFacing() bool
}

// baseError carries the fields shared by every typed error. Concrete
// types embed it and override Error and Is.
type baseError struct {
	msg        string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *baseError) Unwrap() error { return e.cause }

// Is matches through the cause chain only; concrete types add their own
// type identity on top.
func (e *baseError) Is(target error) bool {
	return e.cause != nil && errors.Is(e.cause, target)
}

func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }

// tagged renders an error-class prefix with optional key=value context,
// as in "sdk error [path=/opt/sdk, target=android-34]".
func tagged(kind string, tags []string) string {
	if len(tags) == 0 {
		return kind
	}
	return kind + " [" + strings.Join(tags, ", ") + "]"
}

// -----------------------------------------------------------------------------
// Domain Errors
// -----------------------------------------------------------------------------

// SdkError reports a failure in SDK discovery or parsing. Path and Target
// narrow the failure to an install and a target hash when known.
//
//	err := errors.NewSdkError("failed to parse platform", errors.ErrTargetNotFound)
//	err = err.WithPath("/opt/android-sdk")
//	// "sdk error [path=/opt/android-sdk]: failed to parse platform: target not found"
type SdkError struct {
	baseError
	Path   string
	Target string
}

// NewSdkError creates an SdkError, non-retryable by default.
func NewSdkError(message string, cause error) *SdkError {
	return &SdkError{baseError: baseError{
		msg:        message,
		cause:      cause,
		severity:   SeverityError,
		userFacing: true,
	}}
}

// WithPath records the SDK root involved.
func (e *SdkError) WithPath(path string) *SdkError {
	e.Path = path
	return e
}

// WithTarget records the hash of the target involved.
func (e *SdkError) WithTarget(hash string) *SdkError {
	e.Target = hash
	return e
}

// WithSeverity overrides the default severity.
func (e *SdkError) WithSeverity(s Severity) *SdkError {
	e.severity = s
	return e
}

// WithRetryable overrides the default retry classification.
func (e *SdkError) WithRetryable(r bool) *SdkError {
	e.retryable = r
	return e
}

// Error formats the failure with its bracketed context.
func (e *SdkError) Error() string {
	var tags []string
	if e.Path != "" {
		tags = append(tags, "path="+e.Path)
	}
	if e.Target != "" {
		tags = append(tags, "target="+e.Target)
	}
	s := tagged("sdk error", tags) + ": " + e.msg
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

// Is additionally matches any *SdkError, so errors.Is(err, &SdkError{})
// works as a class check.
func (e *SdkError) Is(target error) bool {
	if _, ok := target.(*SdkError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// BridgeError reports a failure in the adb server lifecycle. AdbOutput
// carries captured daemon text when the failure produced any.
//
//	err := errors.NewBridgeError("server did not answer", errors.ErrBridgeFailed)
//	err = err.WithAdbPath("/sdk/platform-tools/adb").WithAttempt(2)
type BridgeError struct {
	baseError
	AdbPath   string
	Attempt   int
	AdbOutput string
}

// NewBridgeError creates a BridgeError, retryable by default.
func NewBridgeError(message string, cause error) *BridgeError {
	return &BridgeError{baseError: baseError{
		msg:        message,
		cause:      cause,
		severity:   SeverityError,
		retryable:  true,
		userFacing: true,
	}}
}

// WithAdbPath records the adb binary involved.
func (e *BridgeError) WithAdbPath(path string) *BridgeError {
	e.AdbPath = path
	return e
}

// WithAttempt records which connection attempt failed.
func (e *BridgeError) WithAttempt(n int) *BridgeError {
	e.Attempt = n
	return e
}

// WithAdbOutput attaches captured adb daemon output.
func (e *BridgeError) WithAdbOutput(output string) *BridgeError {
	e.AdbOutput = output
	return e
}

// WithSeverity overrides the default severity.
func (e *BridgeError) WithSeverity(s Severity) *BridgeError {
	e.severity = s
	return e
}

// WithRetryable overrides the default retry classification.
func (e *BridgeError) WithRetryable(r bool) *BridgeError {
	e.retryable = r
	return e
}

// Error formats the failure, appending daemon output on its own line
// when present.
func (e *BridgeError) Error() string {
	var tags []string
	if e.AdbPath != "" {
		tags = append(tags, "adb="+e.AdbPath)
	}
	if e.Attempt > 0 {
		tags = append(tags, fmt.Sprintf("attempt=%d", e.Attempt))
	}
	s := tagged("bridge error", tags) + ": " + e.msg
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	if e.AdbOutput != "" {
		s += "\nadb output: " + e.AdbOutput
	}
	return s
}

// Is additionally matches any *BridgeError.
func (e *BridgeError) Is(target error) bool {
	if _, ok := target.(*BridgeError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DeviceError reports a failure concerning one attached device.
//
//	err := errors.NewDeviceError("shell command failed", cause)
//	err = err.WithSerial("emulator-5554").WithState("offline")
type DeviceError struct {
	baseError
	Serial string
	State  string
}

// NewDeviceError creates a DeviceError, non-retryable by default.
func NewDeviceError(message string, cause error) *DeviceError {
	return &DeviceError{baseError: baseError{
		msg:        message,
		cause:      cause,
		severity:   SeverityError,
		userFacing: true,
	}}
}

// WithSerial records the device serial involved.
func (e *DeviceError) WithSerial(serial string) *DeviceError {
	e.Serial = serial
	return e
}

// WithState records the device state the server reported.
func (e *DeviceError) WithState(state string) *DeviceError {
	e.State = state
	return e
}

// WithSeverity overrides the default severity.
func (e *DeviceError) WithSeverity(s Severity) *DeviceError {
	e.severity = s
	return e
}

// WithRetryable overrides the default retry classification.
func (e *DeviceError) WithRetryable(r bool) *DeviceError {
	e.retryable = r
	return e
}

// Error formats the failure with its bracketed context.
func (e *DeviceError) Error() string {
	var tags []string
	if e.Serial != "" {
		tags = append(tags, "serial="+e.Serial)
	}
	if e.State != "" {
		tags = append(tags, "state="+e.State)
	}
	s := tagged("device error", tags) + ": " + e.msg
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

// Is additionally matches any *DeviceError.
func (e *DeviceError) Is(target error) bool {
	if _, ok := target.(*DeviceError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError reports that a named resource does not exist.
//
//	errors.NewNotFoundError("target", "android-34")
//	// "target 'android-34' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a NotFoundError for the named resource.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError:    baseError{severity: SeverityWarning, userFacing: true},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause attaches the underlying failure.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error formats as "<type> '<id>' not found".
func (e *NotFoundError) Error() string {
	s := e.ResourceType + " '" + e.ResourceID + "' not found"
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

// Is additionally matches any *NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError reports that a resource to be created is already
// there.
//
//	errors.NewAlreadyExistsError("server lock", "/run/sdkbridge/adb.lock")
//	// "server lock '/run/sdkbridge/adb.lock' already exists"
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates an AlreadyExistsError for the named
// resource.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError:    baseError{severity: SeverityWarning, userFacing: true},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause attaches the underlying failure.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Error formats as "<type> '<id>' already exists".
func (e *AlreadyExistsError) Error() string {
	s := e.ResourceType + " '" + e.ResourceID + "' already exists"
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

// Is additionally matches any *AlreadyExistsError.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError reports invalid input or state.
//
//	err := errors.NewValidationError("must be positive").
//		WithField("bridge.wait_ceiling_ms").
//		WithValue(-1)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{baseError: baseError{
		msg:        message,
		severity:   SeverityWarning,
		userFacing: true,
	}}
}

// WithField records the config or input field that failed.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue records the rejected value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause attaches the underlying failure.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error formats the failure with its bracketed context.
func (e *ValidationError) Error() string {
	var tags []string
	if e.Field != "" {
		tags = append(tags, "field="+e.Field)
	}
	if e.Value != nil {
		tags = append(tags, fmt.Sprintf("value=%v", e.Value))
	}
	s := tagged("validation error", tags) + ": " + e.msg
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

// Is additionally matches any *ValidationError and the ErrInvalidInput
// sentinel.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError reports an operation that outlived its deadline.
//
//	errors.NewTimeoutError("waiting for bridge to connect", 10*time.Second)
//	// "timeout error: waiting for bridge to connect (timeout: 10s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a TimeoutError, retryable by default.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{severity: SeverityWarning, retryable: true, userFacing: true},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause attaches the underlying failure.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable overrides the default retry classification.
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error formats as "timeout error: <operation> (timeout: <duration>)".
func (e *TimeoutError) Error() string {
	s := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

// Is additionally matches any *TimeoutError and the ErrTimeout sentinel.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// IsRetryable reports whether the operation behind err is worth trying
// again. Typed errors answer for themselves; anything else is retryable
// only when it wraps ErrTimeout.
//
//	if errors.IsRetryable(err) {
//		time.Sleep(backoff)
//		return retry(op)
//	}
func IsRetryable(err error) bool {
	var appErr AppError
	if As(err, &appErr) {
		return appErr.IsRetryable()
	}
	return Is(err, ErrTimeout)
}

// IsUserFacing reports whether err's text was written to be shown to the
// user. Errors outside this package's vocabulary are presumed internal.
func IsUserFacing(err error) bool {
	var appErr AppError
	if As(err, &appErr) {
		return appErr.IsUserFacing()
	}
	return IsSemanticError(err)
}

// GetSeverity grades err for logging. Errors outside this package's
// vocabulary grade as SeverityError; nil grades as SeverityDebug.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var appErr AppError
	if As(err, &appErr) {
		return appErr.Severity()
	}
	return SeverityError
}

// IsDomainError reports whether err is one of the subsystem error types.
func IsDomainError(err error) bool {
	var (
		sdkErr    *SdkError
		bridgeErr *BridgeError
		deviceErr *DeviceError
	)
	return As(err, &sdkErr) || As(err, &bridgeErr) || As(err, &deviceErr)
}

// IsSemanticError reports whether err is one of the generic error
// shapes.
func IsSemanticError(err error) bool {
	var (
		notFound *NotFoundError
		exists   *AlreadyExistsError
		invalid  *ValidationError
		timedOut *TimeoutError
	)
	return As(err, &notFound) || As(err, &exists) ||
		As(err, &invalid) || As(err, &timedOut)
}

// -----------------------------------------------------------------------------
// Wrapping
// -----------------------------------------------------------------------------

// Wrap prefixes err with a message, keeping the chain intact for Is and
// As. A nil err stays nil, so call sites can wrap unconditionally.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
