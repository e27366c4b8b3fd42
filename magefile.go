//go:build mage
// +build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

var tools = []string{"deadtimecheck", "bincount", "deadtimecompare", "ratioradius"}

// Build compiles every tool into ./bin.
func Build() error {
	mg.Deps(Vet)
	for _, tool := range tools {
		fmt.Printf("Building %s...\n", tool)
		if err := sh.RunV("go", "build", "-o", filepath.Join("bin", tool), "./"+tool); err != nil {
			return err
		}
	}
	fmt.Println("Compilation finished")
	return nil
}

func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes built binaries.
func Clean() error {
	return sh.Rm("bin")
}
