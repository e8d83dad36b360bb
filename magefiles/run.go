//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the triangle application.
func (Run) App() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run application...")
	_, err := executeCmd("go", withArgs("run", "."), withStream())
	return err
}

// Same as App, with validation disabled.
func (Run) NoValidation() error {
	if err := buildShaders(); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("run", "."), withEnv("VKT_DISABLE_VALIDATION=1"), withStream())
	return err
}

type Test mg.Namespace

// Runs the unit tests. None of them need a GPU.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./engine/..."), withStream())
	return err
}
