package holoquilt

import (
	"reflect"
)

type AppBuilder struct {
	app     *App
	modules []Module
}

func NewAppBuilder() *AppBuilder {
	return &AppBuilder{app: &App{
		resources:        make(map[reflect.Type]any),
		systems:          make(map[string]map[State]map[statePhase][]systemFn),
		systemsStateless: make(map[string][]systemFn),
	}}
}

// UseStates makes the app stateful. States run from initialState up to
// finalState; reaching finalState ends Run.
func (b *AppBuilder) UseStates(initialState State, finalState State) *AppBuilder {
	if finalState < initialState {
		panic("final state precedes initial state")
	}
	b.app.stateful = true
	b.app.initialState = initialState
	b.app.finalState = finalState

	return b
}

func (b *AppBuilder) UseModules(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)

	return b
}

// Build lays out the default stages and installs modules in the order they
// were added.
func (b *AppBuilder) Build() *App {
	app := b.app
	app.state = app.initialState
	for _, stage := range defaultStages() {
		app.stages = append(app.stages, stage)
		app.initStage(stage)
	}

	commands := &Commands{app: app}
	for _, module := range b.modules {
		module.Install(app, commands)
	}

	return app
}
