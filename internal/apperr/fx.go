package apperr

import (
	"go.uber.org/fx"
)

// Module wires the shared failure recorder.
var Module = fx.Module("apperr",
	fx.Provide(NewRecorder),
)
