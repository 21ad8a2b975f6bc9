package tracking

// debugMsgFunc is a function that will be set by main package to use unified logging
var debugMsgFunc func(component, message string, sessionID ...string)

// debugMsgVerboseFunc is a function that will be set by main package for verbose logging only
var debugMsgVerboseFunc func(component, message string, sessionID ...string)

// SetDebugFunction allows main package to provide the debug logger
func SetDebugFunction(fn func(component, message string, sessionID ...string)) {
	debugMsgFunc = fn
}

// SetDebugVerboseFunction allows main package to provide the verbose debug logger
func SetDebugVerboseFunction(fn func(component, message string, sessionID ...string)) {
	debugMsgVerboseFunc = fn
}

// debugMsg is a wrapper that handles nil checks
func debugMsg(component, message string, sessionID ...string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message, sessionID...)
	}
}

// debugMsgVerbose is a wrapper that handles nil checks for verbose messages
func debugMsgVerbose(component, message string, sessionID ...string) {
	if debugMsgVerboseFunc != nil {
		debugMsgVerboseFunc(component, message, sessionID...)
	}
}
