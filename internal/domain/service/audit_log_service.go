// Package service implements the login, trust and verification business
// logic on top of the repository and infrastructure layers.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
	"github.com/starshippsychics/trust-engine/internal/events/kafka"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/security"
	"github.com/starshippsychics/trust-engine/internal/utils/metrics"
)

// AuditEntry is what callers supply per event; storage concerns (encryption,
// IDs, timestamps) are filled in here.
type AuditEntry struct {
	IdentityHash string // empty when no identity resolved
	Action       string
	Status       models.AuditLogStatus
	Request      *models.RequestContext // nil when no HTTP request is involved
	Details      map[string]interface{}
}

// SecurityEventPublisher publishes audit-worthy events to the event bus.
// Satisfied by the Kafka producer; nil-able for deployments without a broker.
type SecurityEventPublisher interface {
	PublishSecurityEvent(eventType kafka.EventType, subject *string, dataPayload interface{}) error
}

// AuditLogService appends to the immutable audit trail. Recording never
// fails the caller: an unavailable audit store must not block a login.
type AuditLogService struct {
	repo      repository.AuditLogRepository
	encryptor security.EncryptionService
	publisher SecurityEventPublisher
	logger    *zap.Logger
}

func NewAuditLogService(
	repo repository.AuditLogRepository,
	encryptor security.EncryptionService,
	publisher SecurityEventPublisher,
	logger *zap.Logger,
) *AuditLogService {
	return &AuditLogService{
		repo:      repo,
		encryptor: encryptor,
		publisher: publisher,
		logger:    logger,
	}
}

// Record appends one audit entry. Failures are logged and counted, never
// returned.
func (s *AuditLogService) Record(ctx context.Context, entry AuditEntry) {
	log := &models.AuditLog{
		ID:        uuid.New(),
		Action:    entry.Action,
		Status:    entry.Status,
		CreatedAt: time.Now().UTC(),
	}
	if entry.IdentityHash != "" {
		log.IdentityHash = &entry.IdentityHash
	}
	if entry.Request != nil {
		if entry.Request.IPAddress != "" {
			if encrypted, err := s.encryptor.Encrypt(entry.Request.IPAddress); err == nil {
				log.IPAddressEncrypted = &encrypted
			} else {
				s.logger.Warn("failed to encrypt origin for audit entry", zap.Error(err))
			}
		}
		if entry.Request.UserAgent != "" {
			ua := entry.Request.UserAgent
			log.UserAgent = &ua
		}
		if entry.Request.HTTPMethod != "" {
			m := entry.Request.HTTPMethod
			log.HTTPMethod = &m
		}
		if entry.Request.Endpoint != "" {
			e := entry.Request.Endpoint
			log.Endpoint = &e
		}
	}
	if len(entry.Details) > 0 {
		if details, err := json.Marshal(entry.Details); err == nil {
			log.Details = details
		} else {
			s.logger.Warn("failed to marshal audit details", zap.Error(err), zap.String("action", entry.Action))
		}
	}

	if err := s.repo.Create(ctx, log); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		s.logger.Error("audit log write failed",
			zap.Error(err),
			zap.String("action", entry.Action),
			zap.String("status", string(entry.Status)),
		)
	}
}

// PublishEvent forwards a security event to the bus, best effort.
func (s *AuditLogService) PublishEvent(eventType kafka.EventType, identityHash string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	var subject *string
	if identityHash != "" {
		subject = &identityHash
	}
	if err := s.publisher.PublishSecurityEvent(eventType, subject, payload); err != nil {
		s.logger.Warn("failed to publish security event",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
	}
}

// List exposes the audit trail to the admin surface.
func (s *AuditLogService) List(ctx context.Context, params repository.ListAuditLogParams) ([]*models.AuditLog, int, error) {
	return s.repo.List(ctx, params)
}
