// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

package validation

import (
	"strings"
	"testing"
)

type sampleConfig struct {
	Token string `validate:"required"`
	Port  int    `validate:"gte=1,lte=65535"`
	Mode  string `validate:"omitempty,oneof=json console"`
}

func TestValidateStructPasses(t *testing.T) {
	if err := ValidateStruct(&sampleConfig{Token: "secret", Port: 8080, Mode: "json"}); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateStructRequired(t *testing.T) {
	err := ValidateStruct(&sampleConfig{Port: 8080})
	if err == nil {
		t.Fatal("expected validation error for missing token")
	}
	if !strings.Contains(err.Error(), "Token is required") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestValidateStructCollectsAllFailures(t *testing.T) {
	err := ValidateStruct(&sampleConfig{Port: 0, Mode: "xml"})
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if len(err.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %v", len(err.Fields), err)
	}
	if !strings.Contains(err.Error(), "Port must be greater than or equal to 1") {
		t.Errorf("message = %q", err.Error())
	}
	if !strings.Contains(err.Error(), "Mode must be one of") {
		t.Errorf("message = %q", err.Error())
	}
}
