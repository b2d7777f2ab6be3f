// Package errors provides typed errors with exit codes for netblocker.
//
// # Error Types
//
// BlockerError is the base error type that wraps an error with an exit code:
//
//	type BlockerError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess           = 0  // Success
//	ExitGeneralError      = 1  // General/unknown errors
//	ExitConfigError       = 2  // Invalid settings or rule lines
//	ExitConfigUnavailable = 3  // Rules file missing or unreadable
//	ExitResolutionBlocked = 4  // Name lookup denied by policy
//	ExitConnectionBlocked = 5  // Connection denied by policy
//	ExitParseError        = 6  // Address text is not an IP literal
//	ExitChildFailed       = 7  // Wrapped command failed without an exit status
//
// # Policy Denials
//
// ResolutionBlocked and ConnectionBlocked are the only errors the gates
// originate. The firewall package wraps them in *net.DNSError and
// *net.OpError, and ConnectionBlocked unwraps to syscall.EACCES:
//
//	if errors.IsBlocked(err) {
//	    // denied by the rule table
//	}
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
