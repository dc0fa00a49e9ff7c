package host

import (
	"context"
	"encoding/json"

	"github.com/python-project-templates/nativemod/internal/abi"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// HostModuleName is the host module every Executor provides to guests in
// addition to imported nativemod modules.
const HostModuleName = "nativemod_host"

// guestLog is the payload of log_message.
type guestLog struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (e *Executor) registerHostModule(ctx context.Context) error {
	builder := e.runtime.NewHostModuleBuilder(HostModuleName)

	// log_message(packed i64) -> i64 always returns 0.
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, packed uint64) uint64 {
			e.logGuestMessage(m, packed)
			return 0
		}).
		Export("log_message")

	_, err := builder.Instantiate(ctx)
	return err
}

func (e *Executor) logGuestMessage(m api.Module, packed uint64) {
	payload, err := abi.Read(m.Memory(), packed, e.config.maxRequestSize)
	if err != nil {
		e.logger.Warn("unreadable guest log", zap.String("guest", m.Name()), zap.Error(err))
		return
	}

	var msg guestLog
	if err := json.Unmarshal(payload, &msg); err != nil {
		e.logger.Info("guest log (raw)", zap.String("guest", m.Name()), zap.ByteString("payload", payload))
		return
	}

	level := zapcore.InfoLevel
	if msg.Level != "" {
		if parsed, err := zapcore.ParseLevel(msg.Level); err == nil {
			level = parsed
		}
	}
	e.logger.Log(level, msg.Message, zap.String("guest", m.Name()))
}
