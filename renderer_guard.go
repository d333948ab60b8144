package holoquilt

import (
	"fmt"
)

// RendererTag marks that a module owning the display surface has been
// installed. Only one may be.
type RendererTag struct {
	Name string
}

func ensureSingleRenderer(app *App, name string) {
	if app == nil {
		panic("ensureSingleRenderer: app is nil")
	}
	if tag, ok := Resource[RendererTag](app); ok {
		if tag.Name != name {
			app.Logger().Errorf("Multiple renderers installed: %s and %s", tag.Name, name)
			panic(fmt.Sprintf("Multiple renderers installed: %s and %s", tag.Name, name))
		}
		panic(fmt.Sprintf("Renderer %s installed twice", name))
	}
	app.addResources(&RendererTag{Name: name})
}
