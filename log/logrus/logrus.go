package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/keyvmongo"
)

var _ keyvmongo.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// entry moves an "err" field into logrus' error slot.
func (l LogrusLogger) entry(f keyvmongo.Fields) *logrus.Entry {
	e := l.E
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		e = e.WithField(k, v)
	}
	return e
}

func (l LogrusLogger) Debug(msg string, f keyvmongo.Fields) { l.entry(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f keyvmongo.Fields)  { l.entry(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f keyvmongo.Fields)  { l.entry(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f keyvmongo.Fields) { l.entry(f).Error(msg) }
