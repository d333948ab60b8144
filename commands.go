package holoquilt

// Commands is the handle modules and systems use to change the app.
type Commands struct {
	app *App
}

// ChangeState switches state after the current tick.
func (cmd *Commands) ChangeState(newState State) *Commands {
	cmd.app.changeState(newState)
	return cmd
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system systemScheduleBuilder) *Commands {
	cmd.app.UseSystem(system)
	return cmd
}

// Quit stops a stateless app after the current tick.
func (cmd *Commands) Quit() {
	cmd.app.quit = true
}
