package metrics

import (
	"go.uber.org/fx"
)

// Module contributes the metrics listeners to the listener groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewMetricsJobListener, fx.ResultTags(`group:"jobListeners"`))),
	fx.Provide(fx.Annotate(NewMetricsStepListener, fx.ResultTags(`group:"stepListeners"`))),
)
