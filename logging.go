package reactive

import "github.com/sirupsen/logrus"

// Log is the package's structured logger. It defaults to logrus's
// standard logger; replace it with SetLogger to route reactive's
// internal diagnostics (cleanup-chain failures, panics recovered from
// user callbacks) into an application's own logging pipeline.
var Log = logrus.StandardLogger()

// SetLogger replaces the package logger. Passing nil restores the
// logrus standard logger.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		Log = logrus.StandardLogger()
		return
	}
	Log = l
}

func logCleanupErrors(node string, err error) {
	if err == nil {
		return
	}
	Log.WithField("node", node).WithError(err).Warn("reactive: errors while running cleanup chain")
}

func logPanicRecovered(node string, r any) {
	Log.WithField("node", node).WithField("panic", r).Error("reactive: recovered panic from user callback")
}
