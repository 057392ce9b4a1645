//go:build mage

// Package main provides build targets for library-backend using Mage.
//
// Usage:
//
//	mage build          Compile api, worker and libraryctl to bin/
//	mage test:all       Run all tests
//	mage test:race      Run all tests with the race detector
//	mage test:lending   Run the lending and store tests only
//	mage lint           Run golangci-lint
//	mage migrate        Apply migrations with libraryctl
//	mage clean          Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo   = "go"
	binLint = "golangci-lint"
	binDir  = "bin"
)

var binaries = map[string]string{
	"library-api":    "./cmd/api",
	"library-worker": "./cmd/worker",
	"libraryctl":     "./cmd/libraryctl",
}

// Build compiles every binary to bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	for name, pkg := range binaries {
		if err := sh.RunV(binGo, "build", "-o", filepath.Join(binDir, name), pkg); err != nil {
			return err
		}
	}
	return nil
}

// Test groups test targets.
type Test mg.Namespace

// All runs every package's tests.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Race runs every package's tests with -race.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Lending runs the coordinator and in-memory store tests.
func (Test) Lending() error {
	return sh.RunV(binGo, "test", "-race", "-count=1",
		"./internal/domains/lending/...",
		"./internal/infrastructure/memory/...",
	)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Migrate applies pending migrations. LIBRARYCTL_DSN selects the database.
func Migrate() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, "libraryctl"), "migrate", "up")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binDir)
}
