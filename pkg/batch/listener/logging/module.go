package logging

import (
	"go.uber.org/fx"
)

// Module contributes the logging listeners to the listener groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewLoggingJobListener, fx.ResultTags(`group:"jobListeners"`))),
	fx.Provide(fx.Annotate(NewLoggingStepListener, fx.ResultTags(`group:"stepListeners"`))),
)
