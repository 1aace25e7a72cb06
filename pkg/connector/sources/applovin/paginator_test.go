package applovin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginator_InitialState(t *testing.T) {
	pg := newPaginator()
	assert.Equal(t, "", pg.Current())
	assert.False(t, pg.Finished())
}

func TestPaginator_AdvanceWithToken(t *testing.T) {
	pg := newPaginator()
	pg.Advance("2")
	assert.Equal(t, "2", pg.Current())
	assert.False(t, pg.Finished())

	pg.Advance("3")
	assert.Equal(t, "3", pg.Current())
}

func TestPaginator_EmptyTokenTerminates(t *testing.T) {
	pg := newPaginator()
	pg.Advance("2")
	pg.Advance("")
	assert.True(t, pg.Finished())
}

func TestPaginator_Finish(t *testing.T) {
	pg := newPaginator()
	pg.Advance("5")
	pg.Finish()
	assert.True(t, pg.Finished())
}
