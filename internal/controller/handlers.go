package controller

import (
	"context"

	"findme/map-core/internal/events"
	"findme/map-core/internal/ui"
)

func (m *Map) registerHandlers() {
	b := m.bus

	b.On(events.ToggleFilters, func(ctx context.Context, _ events.Event) error {
		_, err := m.TogglePanel(ctx, ui.PanelFilters)
		return err
	})
	b.On(events.ToggleStatistics, func(ctx context.Context, _ events.Event) error {
		_, err := m.TogglePanel(ctx, ui.PanelStatistics)
		return err
	})

	b.On(events.ApplyFilters, func(ctx context.Context, _ events.Event) error { return m.ApplyFilters(ctx) })
	b.On(events.SearchSubmit, func(ctx context.Context, _ events.Event) error { return m.ApplyFilters(ctx) })
	b.On(events.ResetFilters, func(ctx context.Context, _ events.Event) error { return m.ResetFilters(ctx) })
	b.On(events.ClearSearch, func(ctx context.Context, _ events.Event) error { return m.ClearSearch(ctx) })

	b.On(events.Locate, func(ctx context.Context, _ events.Event) error { return m.Locate(ctx) })
	b.On(events.ToggleFullscreen, func(context.Context, events.Event) error {
		_, err := m.ToggleFullscreen()
		return err
	})
	b.On(events.FullscreenExited, func(context.Context, events.Event) error { return m.FullscreenExited() })
	b.On(events.Refresh, func(ctx context.Context, _ events.Event) error { return m.Refresh(ctx) })

	b.On(events.ActivateMarker, func(ctx context.Context, ev events.Event) error { return m.OpenPerson(ctx, ev.PersonID) })
	b.On(events.CloseModal, func(context.Context, events.Event) error { return m.CloseModal() })
	b.On(events.ModalOverlayClick, func(context.Context, events.Event) error { return m.CloseModal() })
	b.On(events.KeyDown, func(_ context.Context, ev events.Event) error {
		_, err := m.HandleKey(ev.Key)
		return err
	})

	b.On(events.DismissToast, func(context.Context, events.Event) error {
		m.DismissToast()
		return nil
	})
	b.On(events.Unload, func(context.Context, events.Event) error {
		m.Teardown()
		return nil
	})
}
