package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/valyala/fasthttp"

	"cravlr/internal/domain"
	"cravlr/internal/middleware"
	"cravlr/internal/service/popup"
	"cravlr/internal/service/session"
)

const streamKeepAlive = 15 * time.Second

type PopupHandler struct {
	hub   *session.Hub
	clock clockwork.Clock
}

func NewPopupHandler(hub *session.Hub, clock clockwork.Clock) *PopupHandler {
	return &PopupHandler{hub: hub, clock: clock}
}

func (h *PopupHandler) session(c *fiber.Ctx) (*session.Session, error) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return nil, err
	}
	s := h.hub.Get(userID)
	if s == nil {
		return nil, fiber.ErrServiceUnavailable
	}
	return s, nil
}

func (h *PopupHandler) Current(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(s.Queue.Snapshot())
}

func (h *PopupHandler) Accept(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	ping, err := s.Presenter.Accept(c.Context())
	if err != nil {
		return serviceError(err)
	}
	return h.acted(c, s, "accepted", ping)
}

func (h *PopupHandler) Ignore(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	ping, err := s.Presenter.Ignore(c.Context())
	if err != nil {
		return serviceError(err)
	}
	return h.acted(c, s, "ignored", ping)
}

func (h *PopupHandler) Dismiss(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	ping, err := s.Presenter.Dismiss()
	if err != nil {
		return serviceError(err)
	}
	return h.acted(c, s, "dismissed", ping)
}

func (h *PopupHandler) acted(c *fiber.Ctx, s *session.Session, outcome string, ping domain.Ping) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"outcome": outcome,
		"popup":   ping,
		"queue":   s.Queue.Snapshot(),
	})
}

// Stream pushes every queue snapshot to the client as server-sent events.
func (h *PopupHandler) Stream(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	snaps := make(chan popup.Snapshot, 1)
	detach := s.Attach()
	unsubscribe := s.Queue.Subscribe(func(snap popup.Snapshot) {
		offerLatest(snaps, snap)
	})

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer detach()
		defer unsubscribe()

		keepAlive := h.clock.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-s.Done():
				return
			case snap := <-snaps:
				if err := writeSnapshot(w, snap); err != nil {
					log.Printf("popup stream for %s closed: %v", s.Viewer, err)
					return
				}
			case <-keepAlive.Chan():
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

// offerLatest keeps only the newest snapshot when the client falls behind.
func offerLatest(ch chan popup.Snapshot, snap popup.Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case old := <-ch:
			if old.Version > snap.Version {
				snap = old
			}
		default:
		}
	}
}

func writeSnapshot(w *bufio.Writer, snap popup.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: popup\ndata: %s\n\n", snap.Version, data); err != nil {
		return err
	}
	return w.Flush()
}
