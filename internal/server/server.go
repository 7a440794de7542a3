package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/appointment"
	appointmentdomain "github.com/stateline/govcomm/internal/appointment/domain"
	"github.com/stateline/govcomm/internal/audit"
	auditdomain "github.com/stateline/govcomm/internal/audit/domain"
	"github.com/stateline/govcomm/internal/authorization"
	"github.com/stateline/govcomm/internal/channel"
	channeldomain "github.com/stateline/govcomm/internal/channel/domain"
	"github.com/stateline/govcomm/internal/config"
	"github.com/stateline/govcomm/internal/events"
	"github.com/stateline/govcomm/internal/hierarchy"
	hierarchydomain "github.com/stateline/govcomm/internal/hierarchy/domain"
	"github.com/stateline/govcomm/internal/identity"
	identitydomain "github.com/stateline/govcomm/internal/identity/domain"
	"github.com/stateline/govcomm/internal/observability"
	obsmiddleware "github.com/stateline/govcomm/internal/observability/logger"
	obsmetrics "github.com/stateline/govcomm/internal/observability/metrics"
	obstracing "github.com/stateline/govcomm/internal/observability/tracing"
	"github.com/stateline/govcomm/internal/orgtree"
	orgtreedomain "github.com/stateline/govcomm/internal/orgtree/domain"
	"github.com/stateline/govcomm/internal/position"
	positiondomain "github.com/stateline/govcomm/internal/position/domain"
	"github.com/stateline/govcomm/internal/ratelimit"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	events.Module,
	identity.Module,
	orgtree.Module,
	position.Module,
	appointment.Module,
	hierarchy.Module,
	channel.Module,
	audit.Module,
	authorization.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	identitySvc    identitydomain.Service
	orgtreeSvc     orgtreedomain.Service
	positionSvc    positiondomain.Service
	appointmentSvc appointmentdomain.Service
	hierarchySvc   hierarchydomain.Service
	channelSvc     channeldomain.Service
	resyncLimiter  *ratelimit.ResyncLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
	IdentitySvc    identitydomain.Service
	OrgtreeSvc     orgtreedomain.Service
	PositionSvc    positiondomain.Service
	AppointmentSvc appointmentdomain.Service
	HierarchySvc   hierarchydomain.Service
	ChannelSvc     channeldomain.Service
	ResyncLimiter  *ratelimit.ResyncLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		identitySvc:    p.IdentitySvc,
		orgtreeSvc:     p.OrgtreeSvc,
		positionSvc:    p.PositionSvc,
		appointmentSvc: p.AppointmentSvc,
		hierarchySvc:   p.HierarchySvc,
		channelSvc:     p.ChannelSvc,
		resyncLimiter:  p.ResyncLimiter,
	}

	svc.registerHierarchyRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHierarchyRoutes() {
	h := s.engine.Group("/hierarchy", s.ActorContext())

	structure := h.Group("/structure")
	structure.POST("", s.RequireAction(authorization.ObjectStructure, authorization.ActionCreate), s.CreateUnit)
	structure.GET("/tree", s.RequireAction(authorization.ObjectStructure, authorization.ActionView), s.GetStructureTree)
	structure.GET("/:id", s.RequireAction(authorization.ObjectStructure, authorization.ActionView), s.GetUnit)
	structure.GET("/:id/positions", s.RequireAction(authorization.ObjectPosition, authorization.ActionView), s.ListUnitPositions)
	structure.PUT("/:id", s.RequireAction(authorization.ObjectStructure, authorization.ActionUpdate), s.UpdateUnit)
	structure.DELETE("/:id", s.RequireAction(authorization.ObjectStructure, authorization.ActionDelete), s.DeleteUnit)

	positions := h.Group("/positions")
	positions.POST("", s.RequireAction(authorization.ObjectPosition, authorization.ActionCreate), s.CreatePosition)
	positions.GET("/:id", s.RequireAction(authorization.ObjectPosition, authorization.ActionView), s.GetPosition)
	positions.PUT("/:id", s.RequireAction(authorization.ObjectPosition, authorization.ActionUpdate), s.UpdatePosition)

	appointments := h.Group("/appointments")
	appointments.POST("", s.RequireAction(authorization.ObjectAppointment, authorization.ActionAppointmentAssign), s.AssignAppointment)
	appointments.PUT("/:id/dismiss", s.RequireAction(authorization.ObjectAppointment, authorization.ActionAppointmentDismiss), s.DismissAppointment)

	users := h.Group("/users")
	users.GET("/:id/hierarchy", s.RequireAction(authorization.ObjectStructure, authorization.ActionView), s.GetUserHierarchy)
	users.GET("/:id/supervisor", s.RequireAction(authorization.ObjectStructure, authorization.ActionView), s.GetUserSupervisor)
	users.GET("/:id/subordinates", s.RequireAction(authorization.ObjectStructure, authorization.ActionView), s.GetUserSubordinates)
	users.GET("/:id/appointments", s.RequireAction(authorization.ObjectAppointment, authorization.ActionView), s.GetUserAppointments)
	users.GET("/:id/subscriptions", s.RequireAction(authorization.ObjectChannel, authorization.ActionView), s.GetUserSubscriptions)

	organizations := h.Group("/organizations")
	organizations.POST("/:id/create-channel", s.RequireAction(authorization.ObjectChannel, authorization.ActionUpdate), s.CreateUnitChannel)
	organizations.GET("/:id/channel", s.RequireAction(authorization.ObjectChannel, authorization.ActionView), s.GetUnitChannel)
	organizations.GET("/:id/employees", s.RequireAction(authorization.ObjectStructure, authorization.ActionView), s.GetUnitEmployees)

	channels := h.Group("/channels")
	channels.POST("/:id/sync-membership/:orgId", s.RequireAction(authorization.ObjectChannel, authorization.ActionChannelResync), s.SyncChannelMembership)

	h.GET("/audit-logs", s.RequireAction(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}
