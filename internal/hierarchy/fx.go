package hierarchy

import (
	"go.uber.org/fx"

	"github.com/stateline/govcomm/internal/hierarchy/repository"
	"github.com/stateline/govcomm/internal/hierarchy/service"
)

// Module wires the hierarchy read repository and query service.
var Module = fx.Module("hierarchy.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
