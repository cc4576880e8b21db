package control

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/justyntemme/vst3sampler/pkg/framework/state"
)

// SampleResponse is one library entry
type SampleResponse struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	RootNote uint8  `json:"root_note"`
	Selected bool   `json:"selected"`
}

// ListSamples handles GET /samples
func (c *Controller) ListSamples(ctx echo.Context) error {
	if c.samples == nil {
		return c.HandleError(ctx, nil, "No sample library configured", http.StatusNotFound)
	}
	current := c.engine.CurrentSample()
	entries := c.samples.Entries()
	resp := make([]SampleResponse, len(entries))
	for i, e := range entries {
		resp[i] = SampleResponse{Index: i, Name: e.Name, RootNote: e.RootNote, Selected: i == current}
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetStats handles GET /stats
func (c *Controller) GetStats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.engine.Stats().Snapshot())
}

// GetState handles GET /state, returning the XML parameter tree
func (c *Controller) GetState(ctx echo.Context) error {
	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationXMLCharsetUTF8)
	ctx.Response().WriteHeader(http.StatusOK)
	return c.state.Save(ctx.Response())
}

// PutState handles PUT /state. A malformed blob resets every parameter to
// its default and answers 400.
func (c *Controller) PutState(ctx echo.Context) error {
	if err := c.state.Load(ctx.Request().Body); err != nil {
		return c.HandleError(ctx, err, "State rejected, parameters reset to defaults", http.StatusBadRequest)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetPreset handles GET /preset?name=..., returning a YAML preset
func (c *Controller) GetPreset(ctx echo.Context) error {
	name := ctx.QueryParam("name")
	if name == "" {
		name = "Untitled"
	}
	ctx.Response().Header().Set(echo.HeaderContentType, "application/yaml")
	ctx.Response().WriteHeader(http.StatusOK)
	return state.SavePreset(ctx.Response(), c.state.Snapshot(name))
}

// PutPreset handles PUT /preset. Valid entries are applied even when
// others fail.
func (c *Controller) PutPreset(ctx echo.Context) error {
	p, err := state.LoadPreset(ctx.Request().Body)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid preset", http.StatusBadRequest)
	}
	if err := c.state.Apply(p); err != nil {
		return c.HandleError(ctx, err, "Preset partially applied", http.StatusUnprocessableEntity)
	}
	return ctx.NoContent(http.StatusNoContent)
}
