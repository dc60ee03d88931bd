package mirror

import (
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithFields(logrus.Fields{"prefix": "mirror"})

// SetLogger replaces the package logger.
func SetLogger(l *logrus.Entry) {
	logger = l
}
