package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/ports"
	"github.com/electrix/tracker/internal/core/view"
	"github.com/electrix/tracker/pkg/metrics"
)

// ImageBucket is the storage bucket holding housing unit photos.
const ImageBucket = "housing-images"

// Upload is an image received from the browser.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// UnitService implements the actions of one housing unit row. The units live
// in the workflow screen state.
type UnitService struct {
	backend ports.Backend
	views   screenStore[view.Workflow, *view.Workflow]
	cleanup ports.TaskScheduler
	log     zerolog.Logger
}

func NewUnitService(backend ports.Backend, views ports.ViewStore, cleanup ports.TaskScheduler, log zerolog.Logger) *UnitService {
	return &UnitService{
		backend: backend,
		views:   newScreenStore[view.Workflow](views, screenWorkflow, log),
		cleanup: cleanup,
		log:     log,
	}
}

// ToggleStage flips one checklist stage. The new value is kept pending until
// the backend confirms it and is discarded if the write fails. Each write
// carries the whole checklist, including other pending stages, and a
// successful one commits all of it.
func (s *UnitService) ToggleStage(ctx context.Context, id identity.Identity, unitID, stage string) error {
	if !domain.IsStage(stage) {
		return nil
	}
	sid := id.SessionID()
	key := view.Key("unit", unitID)

	var (
		gen    uint64
		next   bool
		status domain.Checklist
		found  bool
	)
	_, err := s.views.update(ctx, sid, func(v *view.Workflow) error {
		u, ok := v.Unit(unitID)
		if !ok {
			return nil
		}
		found = true
		current, pending := v.Pending(unitID, stage)
		if !pending {
			current = u.Status[stage]
		}
		next = !current
		v.BeginToggle(unitID, stage, next)
		gen = v.Generation

		status = u.Status.Clone()
		for _, p := range v.Toggles[unitID] {
			status[p.Stage] = p.Done
		}
		return nil
	})
	if err != nil || !found {
		return err
	}

	callErr := s.backend.As(id.Auth()).HousingUnits().Update(ctx, unitID, domain.HousingUnitPatch{Status: status})

	_, err = s.views.update(ctx, sid, func(v *view.Workflow) error {
		if v.Generation != gen {
			return domain.ErrStaleView
		}
		if callErr != nil {
			v.RollbackToggle(unitID, stage)
			v.Fail(key, alertFor("toggle_stage", callErr))
			return nil
		}
		v.CommitToggle(unitID, stage, status)
		v.Settle()
		return nil
	})

	if callErr != nil {
		metrics.ChecklistTogglesTotal.WithLabelValues("rolled_back").Inc()
		s.log.Error().Err(callErr).Str("unit_id", unitID).Str("stage", stage).Msg("checklist toggle failed")
	} else {
		metrics.ChecklistTogglesTotal.WithLabelValues("committed").Inc()
	}
	if errors.Is(err, domain.ErrStaleView) {
		s.log.Info().Str("unit_id", unitID).Msg("dropping toggle result for remounted screen")
		return nil
	}
	if errors.Is(callErr, domain.ErrUnauthenticated) {
		return callErr
	}
	return err
}

func (s *UnitService) SaveComment(ctx context.Context, id identity.Identity, unitID, comment string) error {
	patch := domain.HousingUnitPatch{Comments: &comment}
	return s.views.mutate(ctx, id.SessionID(), mutation[*view.Workflow]{
		action: "save_comment",
		key:    view.Key("unit", unitID),
		call:   s.patchCall(id, unitID, patch),
	})
}

// Rename changes the unit's name. A blank name is ignored.
func (s *UnitService) Rename(ctx context.Context, id identity.Identity, unitID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	patch := domain.HousingUnitPatch{Name: &name}
	return s.views.mutate(ctx, id.SessionID(), mutation[*view.Workflow]{
		action: "rename_unit",
		key:    view.Key("unit", unitID),
		call:   s.patchCall(id, unitID, patch),
	})
}

// Delete removes the unit once confirmed and schedules removal of its photos.
func (s *UnitService) Delete(ctx context.Context, id identity.Identity, unitID string, confirmed bool) error {
	sid := id.SessionID()
	ok, err := s.views.confirm(ctx, sid, view.Confirmation{
		Action:   "delete_unit",
		TargetID: unitID,
		Prompt:   "¿Estás seguro de eliminar esta vivienda?",
	}, confirmed)
	if err != nil || !ok {
		return err
	}

	v, err := s.views.peek(ctx, sid)
	if err != nil {
		return err
	}
	unit, _ := v.Unit(unitID)

	return s.views.mutate(ctx, sid, mutation[*view.Workflow]{
		action: "delete_unit",
		key:    view.Key("unit", unitID),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			gw := s.backend.As(id.Auth())
			if err := gw.HousingUnits().Delete(ctx, unitID); err != nil {
				return nil, err
			}
			for _, url := range unit.Images {
				s.scheduleRemoval(gw.Storage(), url)
			}
			return func(v *view.Workflow) { v.RemoveUnit(unitID) }, nil
		},
	})
}

// UploadImage stores the photo and links its public URL to the unit. When
// linking fails the stored object is deleted again.
func (s *UnitService) UploadImage(ctx context.Context, id identity.Identity, unitID string, up Upload) error {
	sid := id.SessionID()
	v, err := s.views.peek(ctx, sid)
	if err != nil {
		return err
	}
	unit, ok := v.Unit(unitID)
	if !ok || up.Body == nil {
		return nil
	}

	return s.views.mutate(ctx, sid, mutation[*view.Workflow]{
		action: "upload_image",
		key:    view.Key("unit", unitID),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			gw := s.backend.As(id.Auth())
			storage := gw.Storage()

			stored, err := storage.Upload(ctx, ImageBucket, objectName(unitID, up.Filename), up.ContentType, up.Body)
			if err != nil {
				metrics.UploadsTotal.WithLabelValues("upload_failed").Inc()
				return nil, fmt.Errorf("upload object: %w", err)
			}

			images := append(append([]string{}, unit.Images...), storage.PublicURL(ImageBucket, stored))
			patch := domain.HousingUnitPatch{Images: images, SetImages: true}
			if err := gw.HousingUnits().Update(ctx, unitID, patch); err != nil {
				metrics.UploadsTotal.WithLabelValues("link_failed").Inc()
				s.compensate(ctx, storage, stored)
				return nil, fmt.Errorf("link image: %w", err)
			}

			metrics.UploadsTotal.WithLabelValues("linked").Inc()
			s.log.Info().Str("unit_id", unitID).Str("object", stored).Msg("image linked")
			return func(v *view.Workflow) {
				if u, ok := v.Unit(unitID); ok {
					v.ReplaceUnit(patch.Apply(u))
				}
			}, nil
		},
	})
}

// DeleteImage unlinks a photo once confirmed. The stored object is removed in
// the background.
func (s *UnitService) DeleteImage(ctx context.Context, id identity.Identity, unitID, url string, confirmed bool) error {
	sid := id.SessionID()
	ok, err := s.views.confirm(ctx, sid, view.Confirmation{
		Action:   "delete_image",
		TargetID: url,
		Prompt:   "¿Estás seguro de eliminar esta imagen?",
	}, confirmed)
	if err != nil || !ok {
		return err
	}

	v, err := s.views.peek(ctx, sid)
	if err != nil {
		return err
	}
	unit, found := v.Unit(unitID)
	if !found {
		return nil
	}
	images := make([]string, 0, len(unit.Images))
	for _, img := range unit.Images {
		if img != url {
			images = append(images, img)
		}
	}
	patch := domain.HousingUnitPatch{Images: images, SetImages: true}

	return s.views.mutate(ctx, sid, mutation[*view.Workflow]{
		action: "delete_image",
		key:    view.Key("unit", unitID),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			gw := s.backend.As(id.Auth())
			if err := gw.HousingUnits().Update(ctx, unitID, patch); err != nil {
				return nil, err
			}
			s.scheduleRemoval(gw.Storage(), url)
			return func(v *view.Workflow) {
				if u, ok := v.Unit(unitID); ok {
					v.ReplaceUnit(patch.Apply(u))
				}
			}, nil
		},
	})
}

func (s *UnitService) patchCall(id identity.Identity, unitID string, patch domain.HousingUnitPatch) func(context.Context) (func(*view.Workflow), error) {
	return func(ctx context.Context) (func(*view.Workflow), error) {
		if err := s.backend.As(id.Auth()).HousingUnits().Update(ctx, unitID, patch); err != nil {
			return nil, err
		}
		return func(v *view.Workflow) {
			if u, ok := v.Unit(unitID); ok {
				v.ReplaceUnit(patch.Apply(u))
			}
		}, nil
	}
}

func (s *UnitService) compensate(ctx context.Context, storage ports.ObjectStorage, stored string) {
	if err := storage.Remove(context.WithoutCancel(ctx), ImageBucket, stored); err != nil {
		metrics.CompensationsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("object", stored).Msg("failed to remove orphaned object")
		return
	}
	metrics.CompensationsTotal.WithLabelValues("ok").Inc()
	s.log.Warn().Str("object", stored).Msg("removed orphaned object")
}

func (s *UnitService) scheduleRemoval(storage ports.ObjectStorage, url string) {
	objectPath, ok := storage.PathFromURL(ImageBucket, url)
	if !ok {
		return
	}
	s.cleanup.Schedule(objectPath, func(ctx context.Context) error {
		return storage.Remove(ctx, ImageBucket, objectPath)
	})
}

// objectName is {unitID}-{random}.{ext}; the extension comes from the
// uploaded file name.
func objectName(unitID, filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s-%s.%s", unitID, uuid.NewString(), ext)
}
