package appointment

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/appointment/domain"
	"github.com/stateline/govcomm/internal/appointment/repository"
	"github.com/stateline/govcomm/internal/appointment/service"
	"github.com/stateline/govcomm/internal/clock"
	"github.com/stateline/govcomm/internal/config"
	"github.com/stateline/govcomm/internal/events"
	identity "github.com/stateline/govcomm/internal/identity/domain"
	"github.com/stateline/govcomm/internal/observability/metrics"
	orgtree "github.com/stateline/govcomm/internal/orgtree/domain"
	position "github.com/stateline/govcomm/internal/position/domain"
)

type serviceParams struct {
	fx.In

	DB        *gorm.DB
	Repo      domain.Repository
	Positions position.Service
	Units     orgtree.Repository
	Users     identity.Service
	Holder    *config.HierarchyConfigHolder
	Node      *snowflake.Node
	Clock     clock.Clock
	Publisher events.Publisher
	Metrics   *metrics.Metrics

	Synchronizer domain.MembershipSynchronizer `optional:"true"`
}

// Module wires the appointment ledger repository and service.
var Module = fx.Module("appointment.service",
	fx.Provide(repository.New),
	fx.Provide(func(p serviceParams) domain.Service {
		var opts []service.Option
		if p.Synchronizer != nil {
			opts = append(opts, service.WithMembershipSynchronizer(p.Synchronizer))
		}
		return service.New(p.DB, p.Repo, p.Positions, p.Units, p.Users, p.Holder, p.Node, p.Clock, p.Publisher, p.Metrics, opts...)
	}),
)
