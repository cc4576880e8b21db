package control

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/justyntemme/vst3sampler/pkg/framework/param"
)

// ParamResponse describes one parameter and its current value
type ParamResponse struct {
	ID         uint32   `json:"id"`
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	Unit       string   `json:"unit,omitempty"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
	Default    float64  `json:"default"`
	Value      float64  `json:"value"`
	Normalized float64  `json:"normalized"`
	Display    string   `json:"display"`
	Choices    []string `json:"choices,omitempty"`
}

func newParamResponse(p *param.Parameter) ParamResponse {
	normalized := p.GetValue()
	return ParamResponse{
		ID:         p.ID,
		Key:        p.Key,
		Name:       p.Name,
		Unit:       p.Unit,
		Min:        p.Min,
		Max:        p.Max,
		Default:    p.DefaultPlain(),
		Value:      p.Denormalize(normalized),
		Normalized: normalized,
		Display:    p.FormatValue(normalized),
		Choices:    p.Choices,
	}
}

// ParamUpdate sets a parameter by plain value or by display text. Exactly
// one field must be present.
type ParamUpdate struct {
	Value   *float64 `json:"value,omitempty"`
	Display *string  `json:"display,omitempty"`
}

// ListParams handles GET /params
func (c *Controller) ListParams(ctx echo.Context) error {
	all := c.engine.GetParameters().All()
	resp := make([]ParamResponse, 0, len(all))
	for _, p := range all {
		resp = append(resp, newParamResponse(p))
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetParam handles GET /params/:key
func (c *Controller) GetParam(ctx echo.Context) error {
	p, err := c.engine.GetParameters().Lookup(ctx.Param("key"))
	if err != nil {
		return c.HandleError(ctx, err, "Parameter not found", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, newParamResponse(p))
}

// SetParam handles PUT /params/:key. Out-of-range values are clamped.
func (c *Controller) SetParam(ctx echo.Context) error {
	key := ctx.Param("key")
	reg := c.engine.GetParameters()

	var req ParamUpdate
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if (req.Value == nil) == (req.Display == nil) {
		return c.HandleError(ctx, nil, "Exactly one of value or display is required", http.StatusBadRequest)
	}

	var err error
	if req.Value != nil {
		err = reg.Set(key, *req.Value)
	} else {
		err = reg.SetString(key, *req.Display)
	}
	switch {
	case errors.Is(err, param.ErrUnknownParameter):
		return c.HandleError(ctx, err, "Parameter not found", http.StatusNotFound)
	case err != nil:
		return c.HandleError(ctx, err, "Invalid parameter value", http.StatusBadRequest)
	}

	p := reg.MustLookup(key)
	c.log.Info("parameter set", "key", key, "display", p.FormatValue(p.GetValue()))
	return ctx.JSON(http.StatusOK, newParamResponse(p))
}
