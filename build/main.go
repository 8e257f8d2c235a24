package main

import (
	"os"
	"os/exec"

	"github.com/goyek/goyek/v2"
)

func run(a *goyek.A, name string, args ...string) {
	cmd := exec.CommandContext(a.Context(), name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		run(a, "go", "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run all tests",
	Action: func(a *goyek.A) {
		run(a, "go", "test", "-race", "./...")
	},
})

var image = goyek.Define(goyek.Task{
	Name:  "image",
	Usage: "Build the service image locally through the pipeline (build only)",
	Action: func(a *goyek.A) {
		cmd := exec.CommandContext(a.Context(), "go", "run", "./cmd/pipeline")
		cmd.Env = append(os.Environ(), "GITHUB_EVENT_NAME=pull_request", "GITHUB_BASE_REF=main", "SHIPYARD_CACHE=none")
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			a.Error(err)
		}
	},
})

var _ = goyek.Define(goyek.Task{
	Name:  "all",
	Usage: "Vet and test",
	Deps:  goyek.Deps{vet, test},
})

func main() {
	goyek.Main(os.Args[1:])
}
