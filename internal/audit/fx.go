package audit

import (
	"go.uber.org/fx"

	"github.com/stateline/govcomm/internal/audit/repository"
	"github.com/stateline/govcomm/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
