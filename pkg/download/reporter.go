package download

import "log/slog"

// Reporter receives progress events for individual files. Methods are
// called from download worker goroutines; a slow reporter serializes
// otherwise-independent fetches, so implementations must not block.
type Reporter interface {
	Started(path string)
	Completed(path string, bytes int64)
	Failed(path string, err error)
}

// NullReporter discards all events.
type NullReporter struct{}

func (NullReporter) Started(string)          {}
func (NullReporter) Completed(string, int64) {}
func (NullReporter) Failed(string, error)    {}

// LogReporter emits one slog line per event. Used by the CLI.
type LogReporter struct {
	Log *slog.Logger
}

func (r LogReporter) Started(path string) {
	r.Log.Debug("download started", "path", path)
}

func (r LogReporter) Completed(path string, bytes int64) {
	r.Log.Info("downloaded", "path", path, "bytes", bytes)
}

func (r LogReporter) Failed(path string, err error) {
	r.Log.Error("download failed", "path", path, "error", err)
}

// MultiReporter fans events out to several reporters.
type MultiReporter []Reporter

func (m MultiReporter) Started(path string) {
	for _, r := range m {
		r.Started(path)
	}
}

func (m MultiReporter) Completed(path string, bytes int64) {
	for _, r := range m {
		r.Completed(path, bytes)
	}
}

func (m MultiReporter) Failed(path string, err error) {
	for _, r := range m {
		r.Failed(path, err)
	}
}
