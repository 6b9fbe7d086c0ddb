// Package reporting forwards unexpected errors to Rollbar.
package reporting

import (
	"log"

	"github.com/rollbar/rollbar-go"
)

// Init configures Rollbar and reports whether reporting is enabled.
func Init(token, env, codeVersion string) bool {
	if token == "" {
		rollbar.SetEnabled(false)
		return false
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetCodeVersion(codeVersion)
	rollbar.SetEnabled(true)
	log.Println("INFO: error reporting to Rollbar enabled")
	return true
}

func Report(err error) {
	if err == nil {
		return
	}
	rollbar.Error(err)
}

// Close flushes queued reports.
func Close() {
	rollbar.Close()
}
