// Package numbering issues per-tenant document numbers from the settings document.
package numbering

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/domain/numbering"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const serviceName = "NumberingService"

// Service manages number formats and counters. Every counter change runs in a
// store transaction so concurrent callers never receive the same number.
type Service struct {
	store   docstore.Store
	metrics *telemetry.BusinessMetrics
	now     func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time used for date placeholders and audit stamps
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics sets the business metrics recorder
func WithMetrics(m *telemetry.BusinessMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new numbering Service
func NewService(store docstore.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = telemetry.DefaultBusinessMetrics()
	}
	return s
}

func settingsKey(scope identity.Scope) docstore.Key {
	return docstore.Collection(scope.TenantID, numbering.SettingsCollection).Doc(numbering.SettingsDocID)
}

// readSettings loads the settings inside tx. A missing document yields the defaults
// and exists=false.
func (s *Service) readSettings(tx docstore.Tx, scope identity.Scope, at time.Time) (*numbering.SequenceSettings, bool, error) {
	snap, err := tx.Get(settingsKey(scope))
	if err != nil {
		return nil, false, err
	}
	if !snap.Exists {
		return numbering.NewDefaultSettings(scope.Actor.ID, at), false, nil
	}
	var settings numbering.SequenceSettings
	if err := docstore.Decode(snap.Data, &settings); err != nil {
		return nil, false, err
	}
	return &settings, true, nil
}

func writeSettings(tx docstore.Tx, scope identity.Scope, settings *numbering.SequenceSettings) error {
	doc, err := docstore.Encode(settings)
	if err != nil {
		return err
	}
	return tx.Set(settingsKey(scope), doc)
}

// GenerateNumber issues the next number for docType and advances its counter.
// The settings document is created with defaults on first use.
func (s *Service) GenerateNumber(ctx context.Context, scope identity.Scope, docType numbering.DocumentType) (string, error) {
	if err := scope.RequireTenant(); err != nil {
		return "", err
	}
	if !docType.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Unknown document type: "+string(docType))
	}

	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "GenerateNumber", scope,
		telemetry.AttrDocumentType, string(docType))
	defer span.End()

	var number string
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		at := s.now()
		settings, exists, err := s.readSettings(tx, scope, at)
		if err != nil {
			return err
		}
		counter := settings.NextFor(docType)
		number = settings.Issue(docType, scope.Actor.ID, at)
		if !exists {
			return writeSettings(tx, scope, settings)
		}
		return tx.Update(settingsKey(scope), docstore.Document{
			"nextNumbers." + string(docType): counter + 1,
			shared.FieldUpdatedAt:            at.UTC(),
			shared.FieldUpdatedBy:            scope.Actor.ID,
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx).Error("failed to generate document number",
			zap.String("document_type", string(docType)), zap.Error(err))
		return "", err
	}

	s.metrics.RecordNumberIssued(ctx, string(docType))
	telemetry.SetAttributes(span, "number", number)
	logger.L(ctx).Debug("document number issued",
		zap.String("document_type", string(docType)), zap.String("number", number))
	return number, nil
}

// PreviewNextNumber renders the number GenerateNumber would return next.
// The result is advisory: a concurrent caller may take it first.
func (s *Service) PreviewNextNumber(ctx context.Context, scope identity.Scope, docType numbering.DocumentType) (string, error) {
	if !docType.IsValid() {
		if err := scope.RequireTenant(); err != nil {
			return "", err
		}
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Unknown document type: "+string(docType))
	}
	settings, err := s.GetSettings(ctx, scope)
	if err != nil {
		return "", err
	}
	return settings.Peek(docType, s.now()), nil
}

// GetSettings returns the tenant's settings, creating the defaults if absent
func (s *Service) GetSettings(ctx context.Context, scope identity.Scope) (*numbering.SequenceSettings, error) {
	if err := scope.RequireTenant(); err != nil {
		return nil, err
	}
	snap, err := s.store.Get(ctx, settingsKey(scope))
	if err != nil {
		return nil, err
	}
	if snap.Exists {
		var settings numbering.SequenceSettings
		if err := docstore.Decode(snap.Data, &settings); err != nil {
			return nil, err
		}
		return &settings, nil
	}
	return s.initialize(ctx, scope)
}

// InitializeSettings creates the default settings if the tenant has none.
// Existing settings are returned unchanged.
func (s *Service) InitializeSettings(ctx context.Context, scope identity.Scope) (*numbering.SequenceSettings, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	return s.initialize(ctx, scope)
}

func (s *Service) initialize(ctx context.Context, scope identity.Scope) (*numbering.SequenceSettings, error) {
	var settings *numbering.SequenceSettings
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		current, exists, err := s.readSettings(tx, scope, s.now())
		if err != nil {
			return err
		}
		settings = current
		if exists {
			return nil
		}
		return writeSettings(tx, scope, current)
	})
	if err != nil {
		logger.L(ctx).Error("failed to initialize numbering settings", zap.Error(err))
		return nil, err
	}
	return settings, nil
}

// UpdateFormat replaces the template for docType. The counter is left as is.
func (s *Service) UpdateFormat(ctx context.Context, scope identity.Scope, docType numbering.DocumentType, template string) error {
	if err := scope.RequireActor(); err != nil {
		return err
	}
	if !docType.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unknown document type: "+string(docType))
	}
	if err := numbering.ValidateTemplate(template); err != nil {
		return err
	}

	err := s.mutate(ctx, scope, func(settings *numbering.SequenceSettings, at time.Time) error {
		return settings.SetFormat(docType, template, scope.Actor.ID, at)
	})
	if err != nil {
		return err
	}
	logger.L(ctx).Info("number format updated",
		zap.String("document_type", string(docType)), zap.String("template", template))
	return nil
}

// ResetCounter sets the next counter value for docType to start.
// Resetting below a value already issued makes the series repeat numbers.
func (s *Service) ResetCounter(ctx context.Context, scope identity.Scope, docType numbering.DocumentType, start int64) error {
	if err := scope.RequireActor(); err != nil {
		return err
	}
	if !docType.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unknown document type: "+string(docType))
	}
	if start < numbering.FirstNumber {
		return shared.NewDomainError(shared.CodeInvalidInput, "Counter start must be at least 1")
	}

	err := s.mutate(ctx, scope, func(settings *numbering.SequenceSettings, at time.Time) error {
		return settings.Reset(docType, start, scope.Actor.ID, at)
	})
	if err != nil {
		return err
	}
	logger.L(ctx).Warn("number counter reset",
		zap.String("document_type", string(docType)), zap.Int64("start", start))
	return nil
}

func (s *Service) mutate(ctx context.Context, scope identity.Scope, change func(*numbering.SequenceSettings, time.Time) error) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		at := s.now()
		settings, _, err := s.readSettings(tx, scope, at)
		if err != nil {
			return err
		}
		if err := change(settings, at); err != nil {
			return err
		}
		return writeSettings(tx, scope, settings)
	})
}
