package capture

// debugMsgFunc is a function that will be set by main package to use unified logging
var debugMsgFunc func(component, message string, sessionID ...string)

// debugMsgVerboseFunc is set by main package for verbose-only messages
var debugMsgVerboseFunc func(component, message string, sessionID ...string)

// SetDebugFunction allows main package to provide the debug logger
func SetDebugFunction(fn func(component, message string, sessionID ...string)) {
	debugMsgFunc = fn
}

// SetDebugVerboseFunction allows main package to provide the verbose debug logger
func SetDebugVerboseFunction(fn func(component, message string, sessionID ...string)) {
	debugMsgVerboseFunc = fn
}

func debugMsg(component, message string, sessionID ...string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message, sessionID...)
	}
}

func debugMsgVerbose(component, message string, sessionID ...string) {
	if debugMsgVerboseFunc != nil {
		debugMsgVerboseFunc(component, message, sessionID...)
	}
}
