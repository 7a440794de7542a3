package channel

import (
	"go.uber.org/fx"

	appointment "github.com/stateline/govcomm/internal/appointment/domain"
	"github.com/stateline/govcomm/internal/channel/domain"
	"github.com/stateline/govcomm/internal/channel/repository"
	"github.com/stateline/govcomm/internal/channel/service"
	orgtree "github.com/stateline/govcomm/internal/orgtree/domain"
)

// Module wires the channel repository and service, and exposes the
// service to the orgtree and appointment modules under their own
// collaborator interfaces.
var Module = fx.Module("channel.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) orgtree.ChannelProvisioner { return s }),
	fx.Provide(func(s domain.Service) appointment.MembershipSynchronizer { return s }),
)
