package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Window int    `env:"FEED_INITIAL_WINDOW" validate:"min=1"`
	Name   string `validate:"required"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Window: 20, Name: "feed"}))
}

func TestStruct_UsesEnvTagInMessage(t *testing.T) {
	err := Struct(sample{Window: 0, Name: "feed"})
	assert.EqualError(t, err, "field 'FEED_INITIAL_WINDOW' failed 'min'")
}

func TestStruct_FallsBackToFieldName(t *testing.T) {
	err := Struct(sample{Window: 1})
	assert.EqualError(t, err, "field 'Name' failed 'required'")
}
