package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/ports"
	"github.com/electrix/tracker/internal/core/view"
	"github.com/electrix/tracker/pkg/metrics"
)

// screenState is satisfied by a pointer to any view struct embedding view.Meta.
type screenState[T any] interface {
	*T
	Base() *view.Meta
}

// screenStore loads and splices the state of one screen for a browser session.
type screenStore[T any, P screenState[T]] struct {
	store  ports.ViewStore
	screen string
	log    zerolog.Logger
}

func newScreenStore[T any, P screenState[T]](store ports.ViewStore, screen string, log zerolog.Logger) screenStore[T, P] {
	return screenStore[T, P]{store: store, screen: screen, log: log}
}

func (s screenStore[T, P]) decode(raw []byte) P {
	v := P(new(T))
	if raw == nil {
		return v
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.log.Warn().Err(err).Str("screen", s.screen).Msg("discarding unreadable view state")
		return P(new(T))
	}
	return v
}

// update applies fn to the stored state atomically and returns the result.
func (s screenStore[T, P]) update(ctx context.Context, sid string, fn func(P) error) (P, error) {
	var out P
	err := s.store.Update(ctx, sid, s.screen, func(cur []byte) ([]byte, error) {
		v := s.decode(cur)
		if err := fn(v); err != nil {
			return nil, err
		}
		out = v
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// show returns the state to render. A state spliced by the last mutation is
// rendered as is when cached(v) agrees; anything else is mounted again
// through mount, which fills a blank state from the backend.
func (s screenStore[T, P]) show(ctx context.Context, sid string, cached func(P) bool, mount func(ctx context.Context, v P) error) (P, error) {
	var (
		render P
		hit    bool
		alert  *view.Alert
	)
	err := s.store.Update(ctx, sid, s.screen, func(cur []byte) ([]byte, error) {
		v := s.decode(cur)
		m := v.Base()
		alert, hit = m.Alert, m.Fresh && cached(v)
		if !hit {
			return nil, nil
		}
		m.Fresh, m.Alert = false, nil
		data, err := json.Marshal(v)
		m.Alert = alert
		render = v
		return data, err
	})
	if err != nil {
		return nil, fmt.Errorf("load %s view: %w", s.screen, err)
	}
	if hit {
		return render, nil
	}

	next := P(new(T))
	mountErr := mount(ctx, next)
	if errors.Is(mountErr, domain.ErrUnauthenticated) {
		return nil, mountErr
	}
	_, err = s.update(ctx, sid, func(v P) error {
		next.Base().Generation = v.Base().Generation
		next.Base().Mounted()
		*v = *next
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save %s view: %w", s.screen, err)
	}
	m := next.Base()
	m.Alert = alert
	if mountErr != nil {
		s.log.Error().Err(mountErr).Str("screen", s.screen).Msg("failed to load screen data")
		m.Alert = &view.Alert{Title: "Error al cargar datos", Message: UserMessage(mountErr)}
	}
	return next, nil
}

// confirm reports whether c was already confirmed. Otherwise it stores c as
// the prompt the screen shows next.
func (s screenStore[T, P]) confirm(ctx context.Context, sid string, c view.Confirmation, confirmed bool) (bool, error) {
	proceed := false
	_, err := s.update(ctx, sid, func(v P) error {
		m := v.Base()
		if confirmed && m.Confirm.Matches(c.Action, c.TargetID) {
			proceed = true
			return nil
		}
		m.Ask(c)
		return nil
	})
	return proceed, err
}

// dismiss closes the alert and any confirmation prompt.
func (s screenStore[T, P]) dismiss(ctx context.Context, sid string) error {
	_, err := s.update(ctx, sid, func(v P) error {
		v.Base().Dismiss()
		return nil
	})
	return err
}

// alert raises a modal without a remote call.
func (s screenStore[T, P]) alert(ctx context.Context, sid string, a view.Alert) error {
	_, err := s.update(ctx, sid, func(v P) error {
		m := v.Base()
		m.Alert = &a
		m.Settle()
		return nil
	})
	return err
}

// mutation is one remote write issued from a screen.
type mutation[P any] struct {
	action string
	// key identifies the entity whose request state is tracked.
	key string
	// call performs the remote work and returns the splice to apply.
	call func(ctx context.Context) (func(P), error)
}

// mutate runs m under the screen's current generation. A remote failure is
// stored as an alert and is not returned; the result is dropped when the
// screen was mounted again while the call was in flight.
func (s screenStore[T, P]) mutate(ctx context.Context, sid string, m mutation[P]) error {
	var gen uint64
	_, err := s.update(ctx, sid, func(v P) error {
		v.Base().SetRequest(m.key, view.Pending)
		gen = v.Base().Generation
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", m.action, err)
	}

	splice, callErr := m.call(ctx)
	result := "ok"
	_, err = s.update(ctx, sid, func(v P) error {
		b := v.Base()
		if b.Generation != gen {
			return domain.ErrStaleView
		}
		b.Confirm = nil
		if callErr != nil {
			b.Fail(m.key, alertFor(m.action, callErr))
			return nil
		}
		splice(v)
		b.SetRequest(m.key, view.Idle)
		b.Settle()
		return nil
	})
	if callErr != nil {
		result = "error"
		s.log.Error().Err(callErr).Str("screen", s.screen).Str("action", m.action).Msg("mutation failed")
	}

	switch {
	case errors.Is(err, domain.ErrStaleView):
		metrics.MutationsTotal.WithLabelValues(s.screen, m.action, "stale").Inc()
		s.log.Info().Str("screen", s.screen).Str("action", m.action).Msg("dropping result for remounted screen")
		err = nil
	case err != nil:
		return fmt.Errorf("%s: %w", m.action, err)
	default:
		metrics.MutationsTotal.WithLabelValues(s.screen, m.action, result).Inc()
	}

	if errors.Is(callErr, domain.ErrUnauthenticated) {
		return callErr
	}
	return err
}

// peek reads the stored state without changing it.
func (s screenStore[T, P]) peek(ctx context.Context, sid string) (P, error) {
	raw, err := s.store.Get(ctx, sid, s.screen)
	if errors.Is(err, domain.ErrViewNotFound) {
		return P(new(T)), nil
	}
	if err != nil {
		return nil, err
	}
	return s.decode(raw), nil
}
