// Package services contains server-side business logic. This file implements
// ScreeningService, which validates incoming patients and screenings and
// stores them idempotently.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
	"github.com/dmitrijs2005/healthsync/internal/server/models"
	"github.com/dmitrijs2005/healthsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/healthsync/internal/shared"
)

// ScreeningService creates the canonical records. Both create calls are
// idempotent: repeating a call with the same key returns the id assigned
// the first time and stores nothing new.
type ScreeningService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewScreeningService(m repomanager.RepositoryManager, logger logging.Logger) *ScreeningService {
	return &ScreeningService{repomanager: m, logger: logger.With("module", "screening_service")}
}

// decode parses payload strictly into dst and returns its canonical form.
func decode(payload json.RawMessage, dst interface{ Validate() error }) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if err := dst.Validate(); err != nil {
		return nil, err
	}
	canonical, err := json.Marshal(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return canonical, nil
}

func (s *ScreeningService) CreatePatient(ctx context.Context, key string, payload json.RawMessage) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("%w: empty idempotency key", common.ErrValidation)
	}

	var p shared.Patient
	canonical, err := decode(payload, &p)
	if err != nil {
		return 0, err
	}

	id, created, err := s.repomanager.Patients().Create(ctx, &models.Patient{IdempotencyKey: key, Payload: canonical})
	if err != nil {
		return 0, fmt.Errorf("failed to store patient: %w", err)
	}

	if created {
		s.logger.Info(ctx, "patient created", "id", id, "idempotency_key", key)
	} else {
		s.logger.Debug(ctx, "patient already exists", "id", id, "idempotency_key", key)
	}
	return id, nil
}

func (s *ScreeningService) CreateScreening(ctx context.Context, key string, patientID int64, payload json.RawMessage) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("%w: empty idempotency key", common.ErrValidation)
	}

	var sc shared.Screening
	canonical, err := decode(payload, &sc)
	if err != nil {
		return 0, err
	}

	id, created, err := s.repomanager.Screenings().Create(ctx, &models.Screening{
		PatientID:      patientID,
		IdempotencyKey: key,
		Payload:        canonical,
	})
	if err != nil {
		if errors.Is(err, common.ErrParentNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to store screening: %w", err)
	}

	if created {
		s.logger.Info(ctx, "screening created", "id", id, "patient_id", patientID, "idempotency_key", key)
	} else {
		s.logger.Debug(ctx, "screening already exists", "id", id, "idempotency_key", key)
	}
	return id, nil
}
