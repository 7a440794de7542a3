package orgtree

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/clock"
	"github.com/stateline/govcomm/internal/events"
	"github.com/stateline/govcomm/internal/orgtree/domain"
	"github.com/stateline/govcomm/internal/orgtree/repository"
	"github.com/stateline/govcomm/internal/orgtree/service"
)

type serviceParams struct {
	fx.In

	DB        *gorm.DB
	Repo      domain.Repository
	Node      *snowflake.Node
	Clock     clock.Clock
	Publisher events.Publisher

	// Absent until the channel module is wired in.
	Provisioner domain.ChannelProvisioner `optional:"true"`
}

// Module wires the organization tree repository and service.
var Module = fx.Module("orgtree.service",
	fx.Provide(repository.New),
	fx.Provide(func(p serviceParams) domain.Service {
		var opts []service.Option
		if p.Provisioner != nil {
			opts = append(opts, service.WithChannelProvisioner(p.Provisioner))
		}
		return service.New(p.DB, p.Repo, p.Node, p.Clock, p.Publisher, opts...)
	}),
)
