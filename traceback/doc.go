// Package traceback renders error and panic stacks for humans.
//
// The focused style prints the whole stack compactly and then the local variables of
// the frames that belong to your own code. Library frames never get their locals printed.
//
// # Recording locals
//
// Go cannot read a frame's variables after the fact, so functions record them while an
// error passes through:
//
//	func anotherHelper(info map[string]any) error {
//		if _, ok := info["missing_key"]; !ok {
//			return traceback.WithLocals(errors.New("missing_key"), "info", info)
//		}
//		return nil
//	}
//
// The recorded bindings are attached to the frame of the function that called WithLocals.
//
// # User code
//
// A frame is user code when its file path contains one of DefaultUserCodePaths or one of
// the comma-separated patterns in LOGGER_USER_CODE_PATHS:
//
//	LOGGER_USER_CODE_PATHS="github.com/acme/billing,internal/"
//
// # Output
//
//	────────── Traceback (most recent call last) ──────────
//	  billing/cmd/main.go:31 in main.main
//	    if err := run(); err != nil {
//	  billing/cmd/main.go:18 in main.run
//	    return process(42, data)
//	──────────────────────────────────────────────────────
//	*errors.fundamentalError: missing_key
//
//	━━━ Local variables in your code ━━━
//
//	► billing/cmd/main.go:18 in main.run()
//	  (no local variables)
//
//	► billing/cmd/main.go:24 in main.process()
//	  userID = 42
//	  data = map[name:test]
package traceback
