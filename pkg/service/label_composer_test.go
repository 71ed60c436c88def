package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelComposerAppend(t *testing.T) {
	l := NewLabelComposer()
	assert.Equal(t, "", l.Label())
	assert.Equal(t, "Cola", l.Append("Cola"))
	assert.Equal(t, "Cola Diet", l.Append("Diet"))
	assert.Equal(t, "Cola Diet Diet", l.Append("Diet"), "duplicates are kept")
	assert.Equal(t, "Cola Diet Diet 330 ml", l.Append("330", "ml"))
	assert.Equal(t, []string{"Cola", "Diet", "Diet", "330", "ml"}, l.Fragments())
}

func TestLabelComposerClear(t *testing.T) {
	l := NewLabelComposer()
	l.Append("Cola")
	l.Clear()
	assert.Equal(t, "", l.Label())
	assert.Empty(t, l.Fragments())
	assert.Equal(t, "Fanta", l.Append("Fanta"))
}

func TestLabelComposerFragmentsIsCopy(t *testing.T) {
	l := NewLabelComposer()
	l.Append("Cola")
	f := l.Fragments()
	f[0] = "Pepsi"
	assert.Equal(t, "Cola", l.Label())
}
