package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogKeepsOrderAndCounts(t *testing.T) {
	var l Log
	l.Infof("save", "read %d bytes", 10)
	l.Warnf("save", "section %q missing", "species_db")
	l.Append(Entry{Level: Error, Source: "projector", Message: "boom"})

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 1, l.Count(Warning))
	got := l.Entries()
	assert.Equal(t, `section "species_db" missing`, got[1].Message)
	assert.Equal(t, "[error] projector: boom", got[2].String())

	got[0].Message = "mutated"
	assert.Equal(t, "read 10 bytes", l.Entries()[0].Message)
}

func TestEmitMapsLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var l Log
	l.Infof("a", "one")
	l.Successf("a", "two")
	l.Warnf("a", "three")
	l.Errorf("a", "four")
	Emit(zap.New(core), l.Entries())

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 4) {
		assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	}
	Emit(nil, l.Entries())
}
