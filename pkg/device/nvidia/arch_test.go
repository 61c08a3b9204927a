package nvidia

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArchFamilyTable(t *testing.T) {
	cases := []struct {
		major, minor int
		want         string
	}{
		{1, 0, "tesla"},
		{2, 1, "fermi"},
		{3, 0, "kepler"},
		{5, 0, "maxwell"},
		{6, 1, "pascal"},
		{7, 0, "volta"},
		{7, 5, "turing"},
		{8, 0, "ampere"},
		{8, 9, "ada-lovelace"},
		{9, 0, "hopper"},
		{10, 0, "blackwell"},
		{12, 0, "blackwell"},
		{11, 0, "unknown"},
		{99, 9, "unknown"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, archFamily(c.major, c.minor), "major=%d minor=%d", c.major, c.minor)
	}
}
