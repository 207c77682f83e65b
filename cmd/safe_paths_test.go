package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRunName(t *testing.T) {
	for _, name := range []string{"acme", "acme-corp_2026", "checkouts.v2"} {
		assert.NoError(t, validateRunName(name), name)
	}

	for _, name := range []string{"", ".", "..", "bad/name", `bad\name`, "bad\nname"} {
		var nameErr *RunNameError
		assert.ErrorAs(t, validateRunName(name), &nameErr, "%q should be rejected", name)
	}
}
