// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"svgmin/config"
	"svgmin/optimize"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// used by optimize subcommand
	NoDirs    bool
	Overwrite bool
	CodePage  encoding.Encoding
	// Suffix is added to output names when results are written next to
	// sources.
	Suffix string

	optimizer     *optimize.Optimizer
	start         time.Time
	restoreStdLog func()
}

func newLocalEnv() *LocalEnv {
	return &LocalEnv{start: time.Now()}
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

// Optimizer returns optimizer built from current configuration, it is
// created on first use.
func (e *LocalEnv) Optimizer() (*optimize.Optimizer, error) {
	if e.optimizer != nil {
		return e.optimizer, nil
	}
	o, err := optimize.New(&e.Cfg.Optimize, e.Log)
	if err != nil {
		return nil, err
	}
	e.optimizer = o
	return o, nil
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
