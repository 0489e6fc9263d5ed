package thor

import "go.uber.org/zap"

// restyLogger adapts the zap logger to the resty.Logger interface.
type restyLogger struct {
	log *zap.SugaredLogger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.log.Errorf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.log.Warnf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.log.Debugf(format, v...)
}
