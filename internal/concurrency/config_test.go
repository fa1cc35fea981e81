// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// config_test.go — validate()'s invariant checks.
package concurrency

import "testing"

func TestConfig_ValidateRejectsNegativeMinThreads(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = -1
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for negative minThreads")
	}
}

func TestConfig_ValidateRejectsMaxThreadsBelowOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxThreads = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for maxThreads < 1")
	}
}

func TestConfig_ValidateRejectsMaxShrinkCountBelowOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxShrinkCount = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for maxShrinkCount < 1")
	}
}

func TestConfig_ValidateAcceptsDefaults(t *testing.T) {
	if err := DefaultConfig().validate(); err != nil {
		t.Fatalf("DefaultConfig() should validate cleanly: %v", err)
	}
}
