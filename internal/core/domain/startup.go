package domain

// StartupStep is one ordered step of container startup.
type StartupStep string

const (
	StepModelMaterialization StartupStep = "model_materialization"
	StepServerLaunch         StartupStep = "server_launch"
)

// StartupSteps lists the steps in the order they run.
var StartupSteps = []StartupStep{StepModelMaterialization, StepServerLaunch}
