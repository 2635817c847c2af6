//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the engine with the default configuration file.
func (Run) Engine() error {
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the engine against the null backend, no GPU required.
func (Run) Headless() error {
	fmt.Println("Run engine (null backend)...")
	if _, err := executeCmd("go", withArgs("run", "main.go", "-config", "vulcano.null.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
