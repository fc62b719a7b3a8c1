package schedule

import (
	"go.uber.org/zap"
)

// zapCronLogger adapts zap to the cron.Logger interface so engine-level
// events (skipped ticks, recovered panics) land in the service log.
type zapCronLogger struct {
	logger *zap.SugaredLogger
}

func newCronLogger(logger *zap.Logger) zapCronLogger {
	return zapCronLogger{logger: logger.Sugar()}
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
