package support

import "go.uber.org/fx"

// Module defines Fx options related to JobFactory.
var Module = fx.Options(
	fx.Provide(NewJobFactory),
)
