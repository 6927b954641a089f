package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	"github.com/invozo/invozo/internal/auditcontext"
	"github.com/invozo/invozo/internal/clock"
	"github.com/invozo/invozo/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry is one action to record. Actor, address, and agent come from the
// request context; callers only name what happened.
type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

// Recorder writes and reads the tenant audit trail. Record is fire-and-forget
// from the caller's perspective: a failed write is logged, never propagated.
type Recorder struct {
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  auditdomain.Repository
}

type RecorderParam struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

func NewRecorder(p RecorderParam) *Recorder {
	return &Recorder{
		log:   p.Log.Named("audit"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (r *Recorder) Record(ctx context.Context, db *gorm.DB, entry Entry) {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return
	}

	record := auditdomain.AuditLog{
		ID:         r.genID.Generate(),
		ActorType:  string(auditdomain.ActorTypeSystem),
		Action:     action,
		TargetType: entry.TargetType,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  r.clock.Now(),
	}
	if orgID, ok := orgcontext.OrgID(ctx); ok {
		record.OrgID = &orgID
	}
	if actorType, actorID := auditcontext.ActorFromContext(ctx); actorType != "" {
		record.ActorType = actorType
		if actorID != "" {
			record.ActorID = &actorID
		}
	}
	if entry.TargetID != "" {
		record.TargetID = &entry.TargetID
	}
	for key, value := range entry.Metadata {
		record.Metadata[key] = value
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		record.Metadata["request_id"] = requestID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		record.IPAddress = &ip
	}
	if agent := auditcontext.UserAgentFromContext(ctx); agent != "" {
		record.UserAgent = &agent
	}

	if err := r.repo.Insert(ctx, db, &record); err != nil {
		r.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (r *Recorder) List(ctx context.Context, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return r.repo.List(ctx, nil, filter)
}
