package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/invozo/invozo/internal/apikey/domain"
	"github.com/invozo/invozo/internal/clock"
	"github.com/invozo/invozo/internal/orgcontext"
	"github.com/invozo/invozo/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	genID   *snowflake.Node
	keyrepo repository.Repository[apikeydomain.APIKey]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
}

func NewService(p ServiceParam) apikeydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		clock: p.Clock,

		genID:   p.GenID,
		keyrepo: repository.ProvideStore[apikeydomain.APIKey](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req apikeydomain.CreateRequest) (*apikeydomain.CreateResponse, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, apikeydomain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apikeydomain.ErrInvalidName
	}

	plaintext, err := apikeydomain.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	key := apikeydomain.APIKey{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		KeyHash:   apikeydomain.HashAPIKey(plaintext),
		LastFour:  apikeydomain.LastFour(plaintext),
		Active:    true,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: s.clock.Now(),
	}
	if err := s.keyrepo.Insert(ctx, nil, &key); err != nil {
		return nil, err
	}

	s.log.Info("api key created",
		zap.String("key_id", key.ID.String()),
		zap.String("org_id", orgID.String()),
	)
	return &apikeydomain.CreateResponse{
		Response: toResponse(&key),
		Key:      plaintext,
	}, nil
}

func (s *Service) List(ctx context.Context) ([]apikeydomain.Response, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, apikeydomain.ErrInvalidOrganization
	}
	keys, err := s.keyrepo.FindAll(ctx, nil, "org_id = ?", orgID)
	if err != nil {
		return nil, err
	}
	responses := make([]apikeydomain.Response, 0, len(keys))
	for i := range keys {
		responses = append(responses, toResponse(&keys[i]))
	}
	return responses, nil
}

func (s *Service) Revoke(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return apikeydomain.ErrInvalidOrganization
	}
	keyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return apikeydomain.ErrInvalidID
	}
	key, err := s.keyrepo.FindOne(ctx, nil, "id = ? AND org_id = ?", keyID, orgID)
	if err != nil {
		return err
	}
	if key == nil {
		return apikeydomain.ErrNotFound
	}
	key.Active = false
	return s.keyrepo.Save(ctx, nil, key)
}

func (s *Service) Authenticate(ctx context.Context, raw string) (snowflake.ID, snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0, apikeydomain.ErrUnauthorized
	}
	hash := apikeydomain.HashAPIKey(raw)

	key, err := s.keyrepo.FindOne(ctx, nil, "key_hash = ? AND active = ?", hash, true)
	if err != nil {
		return 0, 0, err
	}
	if key == nil || subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 {
		return 0, 0, apikeydomain.ErrUnauthorized
	}
	now := s.clock.Now()
	if key.ExpiresAt != nil && !key.ExpiresAt.After(now) {
		return 0, 0, apikeydomain.ErrUnauthorized
	}

	// Best effort; authentication does not fail on a bookkeeping miss.
	if err := s.db.WithContext(ctx).Model(&apikeydomain.APIKey{}).
		Where("id = ?", key.ID).
		Update("last_used_at", now).Error; err != nil {
		s.log.Warn("failed to record key use", zap.String("key_id", key.ID.String()), zap.Error(err))
	}

	return key.OrgID, key.ID, nil
}

func toResponse(key *apikeydomain.APIKey) apikeydomain.Response {
	return apikeydomain.Response{
		ID:         key.ID.String(),
		Name:       key.Name,
		LastFour:   key.LastFour,
		Active:     key.Active,
		ExpiresAt:  key.ExpiresAt,
		LastUsedAt: key.LastUsedAt,
		CreatedAt:  key.CreatedAt,
	}
}
