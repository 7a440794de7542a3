package position

import (
	"go.uber.org/fx"

	"github.com/stateline/govcomm/internal/position/repository"
	"github.com/stateline/govcomm/internal/position/service"
)

// Module wires the position catalog repository and service.
var Module = fx.Module("position.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
