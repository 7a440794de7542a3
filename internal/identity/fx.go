package identity

import (
	"github.com/stateline/govcomm/internal/identity/repository"
	"github.com/stateline/govcomm/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
