package control

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/justyntemme/vst3sampler/pkg/midi"
)

var errInboxFull = errors.New("live MIDI inbox is full")

// NoteRequest is a live note-on or note-off. Velocity 0 or Off releases
// the note.
type NoteRequest struct {
	Channel  uint8 `json:"channel"`
	Note     int   `json:"note"`
	Velocity int   `json:"velocity"`
	Off      bool  `json:"off"`
}

// ControllerRequest is a live control change
type ControllerRequest struct {
	Channel    uint8 `json:"channel"`
	Controller int   `json:"controller"`
	Value      int   `json:"value"`
}

func checkData(name string, v int) error {
	if v < 0 || v > 127 {
		return fmt.Errorf("%s %d outside 0..127", name, v)
	}
	return nil
}

// PlayNote handles POST /notes. The event sounds at the start of the next
// block.
func (c *Controller) PlayNote(ctx echo.Context) error {
	var req NoteRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if err := errors.Join(checkData("note", req.Note), checkData("velocity", req.Velocity)); err != nil {
		return c.HandleError(ctx, err, "Invalid note", http.StatusBadRequest)
	}

	ev := midi.NoteOn(req.Channel, uint8(req.Note), uint8(req.Velocity), 0)
	if req.Off {
		ev = midi.NoteOff(req.Channel, uint8(req.Note), uint8(req.Velocity), 0)
	}
	return c.send(ctx, ev)
}

// SendController handles POST /cc
func (c *Controller) SendController(ctx echo.Context) error {
	var req ControllerRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if err := errors.Join(checkData("controller", req.Controller), checkData("value", req.Value)); err != nil {
		return c.HandleError(ctx, err, "Invalid control change", http.StatusBadRequest)
	}
	return c.send(ctx, midi.ControlChange(req.Channel, uint8(req.Controller), uint8(req.Value), 0))
}

func (c *Controller) send(ctx echo.Context, ev midi.Event) error {
	if !c.engine.Send(ev) {
		return c.HandleError(ctx, errInboxFull, "Event dropped", http.StatusServiceUnavailable)
	}
	return ctx.JSON(http.StatusAccepted, map[string]string{"queued": ev.String()})
}
