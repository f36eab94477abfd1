package log

import (
	"github.com/sirupsen/logrus"
)

type Logger interface {
	Trace(message string, opts ...interface{})
	Debug(message string, opts ...interface{})
	Info(message string, opts ...interface{})
	Warning(message string, opts ...interface{})
	Error(message string, opts ...interface{})
	Fatal(message string, opts ...interface{})
	Panic(message string, opts ...interface{})
	Child(opts ...interface{}) Logger
}

type ChildLogger struct {
	l      Logger
	fields []interface{}
}

func (c *ChildLogger) Trace(message string, opts ...interface{}) {
	c.l.Trace(message, append(opts, c.fields...)...)
}

func (c *ChildLogger) Debug(message string, opts ...interface{}) {
	c.l.Debug(message, append(opts, c.fields...)...)
}

func (c *ChildLogger) Info(message string, opts ...interface{}) {
	c.l.Info(message, append(opts, c.fields...)...)
}

func (c *ChildLogger) Warning(message string, opts ...interface{}) {
	c.l.Warning(message, append(opts, c.fields...)...)
}

func (c *ChildLogger) Error(message string, opts ...interface{}) {
	c.l.Error(message, append(opts, c.fields...)...)
}

func (c *ChildLogger) Fatal(message string, opts ...interface{}) {
	c.l.Fatal(message, append(opts, c.fields...)...)
}

func (c *ChildLogger) Panic(message string, opts ...interface{}) {
	c.l.Panic(message, append(opts, c.fields...)...)
}

func (c *ChildLogger) Child(opts ...interface{}) Logger {
	return &ChildLogger{
		l:      c,
		fields: opts,
	}
}

type rootLogger struct {
	backend *logrus.Logger
}

func (r *rootLogger) Trace(message string, opts ...interface{}) {
	r.entry(opts).Trace(message)
}

func (r *rootLogger) Debug(message string, opts ...interface{}) {
	r.entry(opts).Debug(message)
}

func (r *rootLogger) Info(message string, opts ...interface{}) {
	r.entry(opts).Info(message)
}

func (r *rootLogger) Warning(message string, opts ...interface{}) {
	r.entry(opts).Warning(message)
}

func (r *rootLogger) Error(message string, opts ...interface{}) {
	r.entry(opts).Error(message)
}

func (r *rootLogger) Fatal(message string, opts ...interface{}) {
	r.entry(opts).Fatal(message)
}

func (r *rootLogger) Panic(message string, opts ...interface{}) {
	r.entry(opts).Panic(message)
}

func (r *rootLogger) Child(opts ...interface{}) Logger {
	return &ChildLogger{
		l:      r,
		fields: opts,
	}
}

func (r *rootLogger) entry(opts []interface{}) *logrus.Entry {
	if len(opts)%2 != 0 {
		panic("mismatched log key/value pairs")
	}

	fields := make(logrus.Fields, len(opts)/2)
	for i := 0; i < len(opts); i += 2 {
		key, ok := opts[i].(string)
		if !ok {
			panic("log keys must be strings")
		}
		fields[key] = opts[i+1]
	}
	return r.backend.WithFields(fields)
}

var root = &rootLogger{
	backend: newBackend(),
}

func newBackend() *logrus.Logger {
	backend := logrus.New()
	backend.SetOutput(logWriter{})
	backend.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return backend
}

func ModuleLogger(name string) Logger {
	return root.Child("module", name)
}

// SetLevel sets the level of every module logger.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	root.backend.SetLevel(lvl)
	return nil
}
