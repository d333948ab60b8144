package holoquilt

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

// Module bundles resources and systems. Install runs once, at Build.
type Module interface {
	Install(app *App, cmd *Commands)
}

// Engine states. An app built with UseStates(StateReady, StateExited) stops
// once it reaches StateExited.
const (
	StateReady State = iota
	StateRunning
	StateExited
)

type App struct {
	stateful           bool
	stateTransitioning bool
	initialState       State
	finalState         State
	nextState          State
	state              State
	started            bool
	quit               bool
	stages             []Stage
	systems            map[string]map[State]map[statePhase][]systemFn
	systemsStateless   map[string][]systemFn
	resources          map[reflect.Type]any
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

func (app *App) State() State {
	return app.state
}

// Run ticks the app until it reaches its final state or, for a stateless
// app, until a system calls Commands.Quit.
func (app *App) Run() {
	for app.Tick() {
	}
}

// Tick runs one pass over every stage. It reports whether the app wants
// another tick.
func (app *App) Tick() bool {
	if !app.started {
		app.started = true
		if app.stateful {
			app.Logger().Debugf("running in stateful mode")
			app.state = app.initialState
			app.callSystems(app.state, enter)
		} else {
			app.Logger().Debugf("running in stateless mode")
		}
	}
	if app.quit {
		return false
	}

	app.callSystems(app.state, execute)

	if app.stateful {
		if app.stateTransitioning {
			app.stateTransitioning = false
			app.executeChangeState(app.nextState)
		}
		if app.state == app.finalState {
			app.callSystems(app.state, exit)
			app.quit = true
		}
	}
	return !app.quit
}

func (app *App) callSystems(state State, phase statePhase) {
	for _, stage := range app.stages {
		if execute == phase {
			for _, system := range app.systemsStateless[stage.Name] {
				app.callSystem(system)
			}
		}

		if app.stateful {
			for _, system := range app.systems[stage.Name][state][phase] {
				app.callSystem(system)
			}
		}
	}
}

func (app *App) changeState(newState State) {
	app.nextState = newState
	app.stateTransitioning = true
}

func (app *App) executeChangeState(newState State) {
	app.Logger().Debugf("state %d -> %d", app.state, newState)
	app.callSystems(app.state, exit)
	app.state = newState
	app.callSystems(app.state, enter)
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type *T.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

var typeOfCommands = reflect.TypeOf(Commands{})

// callSystem resolves every pointer argument of system from the resources
// (or a *Commands) and calls it.
func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			app.unresolved(systemValue, systemType, argType)
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, ok := app.resources[underlyingType]; ok {
			args[i] = reflect.ValueOf(resource)
		} else {
			app.unresolved(systemValue, systemType, argType)
		}
	}
	systemValue.Call(args)
}

func (app *App) unresolved(systemValue reflect.Value, systemType, argType reflect.Type) {
	msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
		runtime.FuncForPC(systemValue.Pointer()).Name(),
		fmt.Sprint(systemType),
		fmt.Sprint(argType),
	)
	app.Logger().Errorf("%s", msg)
	panic(msg)
}
