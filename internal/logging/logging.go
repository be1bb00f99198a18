// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logging builds the zap-backed logr.Logger used by the halo
// command.
package logging

import (
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"code.hybscloud.com/halo/internal/config"
)

// New builds a logger writing to w. The "debug" level enables the
// communicator's V(1) events; V(2) traces need zap level -2, which the
// level "trace" selects. The caller should call the returned sync
// function before exiting.
func New(c config.LogConfig, w io.Writer) (logr.Logger, func() error) {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(c.Level) {
	case "trace":
		level.SetLevel(zapcore.Level(-2))
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}

	encCfg := encoderConfig(c.Development)
	var encoder zapcore.Encoder
	if strings.ToLower(c.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if c.Development {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}
	zl := zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level), opts...)
	return zapr.NewLogger(zl), zl.Sync
}

func encoderConfig(dev bool) zapcore.EncoderConfig {
	if dev {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}
	return zap.NewProductionEncoderConfig()
}
