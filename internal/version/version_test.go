package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoMatchesGetters(t *testing.T) {
	v, c, d := Info()
	assert.NotEmpty(t, v)
	assert.Equal(t, GetVersion(), v)
	assert.Equal(t, GetCommit(), c)
	assert.Equal(t, GetDate(), d)
}

func TestString(t *testing.T) {
	s := String()
	assert.Contains(t, s, "version="+GetVersion())
	assert.Contains(t, s, "commit=")
	assert.Contains(t, s, "date=")
}

func TestFields(t *testing.T) {
	fields := Fields()
	assert.Equal(t, GetVersion(), fields["version"])
	assert.Equal(t, GetCommit(), fields["commit"])
	assert.Equal(t, GetDate(), fields["built"])
}
