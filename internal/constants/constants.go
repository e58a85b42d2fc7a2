package constants

// Centralized constants for env keys, routes, rejection reasons and logging
// field names.
const (
	// Environment variable keys
	EnvConfigPath = "WARCYCLE_CONFIG"
	EnvDBPath     = "WARCYCLE_DB"
	EnvAddress    = "WARCYCLE_ADDR"
	EnvLogLevel   = "WARCYCLE_LOG_LEVEL"

	// Defaults
	DefaultDBPath  = "./data/warcycle.db"
	DefaultAddress = ":8080"
)

// Routes used by the HTTP adapter.
const (
	RouteAPIPrefix      = "/api"
	RouteSessions       = "/sessions"
	RouteSessionByID    = "/sessions/:sessionID"
	RouteSessionActions = "/sessions/:sessionID/actions"
	RouteSessionPause   = "/sessions/:sessionID/pause"
	RouteSessionResume  = "/sessions/:sessionID/resume"
	RouteSessionCycle   = "/sessions/:sessionID/cycle"
	RouteVersion        = "/version"
)

// Rejection and failure reasons. Every reason shown to a producer is
// human-readable; formats take the offending values.
const (
	ReasonGameCompleted          = "game is completed; no further actions are accepted"
	ReasonPhaseMismatchFmt       = "phase mismatch: %s actions are not legal during the %s phase"
	ReasonNoActionsRemaining     = "no actions remaining for this phase"
	ReasonInsufficientResources  = "insufficient resources to cover the declared cost"
	ReasonUnknownPlayerFmt       = "unknown player %q"
	ReasonUnknownRegionFmt       = "unknown region %q"
	ReasonNoHandlerFmt           = "no handler registered for action type %s"
	ReasonExecutorPanicFmt       = "action executor panicked: %v"
	ReasonCancelledByProducer    = "cancelled by producer"
	ReasonActionNotQueuedFmt     = "action %s is not queued"
	ReasonMalformedSubmissionFmt = "malformed submission: %v"
)

// Common JSON response keys.
const (
	JSONKeyError   = "error"
	JSONKeyMessage = "message"
	JSONKeyStatus  = "status"
)

// Logging field names.
const (
	LogFieldSessionID = "session_id"
	LogFieldActionID  = "action_id"
	LogFieldPlayerID  = "player_id"
	LogFieldRegionID  = "region_id"
	LogFieldCycleID   = "cycle_id"
	LogFieldPhase     = "phase"
	LogFieldAddr      = "addr"
	LogFieldDrift     = "drift_ms"
)
