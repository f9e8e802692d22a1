package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"

	"github.com/geket/lamella/internal/layout"
)

// Output is a display discovered through RandR.
type Output struct {
	Name     string
	Geometry layout.Rect
	Primary  bool
}

// Outputs enumerates the active RandR CRTCs. Disabled CRTCs are
// skipped; the primary output is flagged when the server reports one,
// otherwise the first active output is treated as primary.
func (c *Connection) Outputs() ([]Output, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var primary randr.Output
	if reply, err := randr.GetOutputPrimary(c.XUtil.Conn(), c.Root).Reply(); err == nil {
		primary = reply.Output
	}

	var outputs []Output
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Output%d", i)
		isPrimary := false
		for _, out := range info.Outputs {
			if out == primary {
				isPrimary = true
			}
		}
		if outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(outputInfo.Name)
		}

		outputs = append(outputs, Output{
			Name: name,
			Geometry: layout.Rect{
				X:      int(info.X),
				Y:      int(info.Y),
				Width:  int(info.Width),
				Height: int(info.Height),
			},
			Primary: isPrimary,
		})
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("no active outputs found")
	}
	hasPrimary := false
	for _, out := range outputs {
		if out.Primary {
			hasPrimary = true
		}
	}
	if !hasPrimary {
		outputs[0].Primary = true
	}
	return outputs, nil
}
