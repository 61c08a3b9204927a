package nvidia

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var migNameRE = regexp.MustCompile(`^([0-9]+c\.)?[0-9]+g\.[0-9]+gb(\+[a-z.]+)?(-[a-z]+)?$`)

func TestMigMemoryGiB(t *testing.T) {
	const totalMemBytes = uint64(40) << 30

	assert.EqualValues(t, 5, migMemoryGiB(4864, totalMemBytes))
	assert.EqualValues(t, 10, migMemoryGiB(9728, totalMemBytes))
}

func TestMigDeviceNameScenarios(t *testing.T) {
	// S6 from spec.md §8: total_memory=40GiB, slice_memory_MB=4864.
	name := migDeviceName(1, 1, migMemoryGiB(4864, uint64(40)<<30), gpuInstanceAttrs(giProfile1Slice), gpuInstanceNegativeAttrs(giProfile1Slice))
	assert.Equal(t, "1g.5gb", name)

	name = migDeviceName(2, 1, migMemoryGiB(9728, uint64(40)<<30), gpuInstanceAttrs(giProfile2Slice), gpuInstanceNegativeAttrs(giProfile2Slice))
	assert.Equal(t, "1c.2g.10gb", name)

	name = migDeviceName(2, 2, migMemoryGiB(9728, uint64(40)<<30), gpuInstanceAttrs(giProfile2SliceGfx), gpuInstanceNegativeAttrs(giProfile2SliceGfx))
	assert.Equal(t, "2g.10gb+gfx", name)
}

func TestMigNameMatchesRegexForAllValidProfiles(t *testing.T) {
	giProfiles := []int{
		giProfile1Slice, giProfile1SliceRev1, giProfile1SliceRev2, giProfile1SliceGfx,
		giProfile1SliceNoMe, giProfile1SliceAllMe,
		giProfile2Slice, giProfile2SliceRev1, giProfile2SliceGfx, giProfile2SliceNoMe, giProfile2SliceAllMe,
		giProfile3Slice, giProfile4Slice, giProfile4SliceGfx, giProfile6Slice, giProfile7Slice, giProfile8Slice,
	}
	ciProfiles := []int{
		ciProfile1Slice, ciProfile1SliceRev1, ciProfile2Slice, ciProfile3Slice,
		ciProfile4Slice, ciProfile6Slice, ciProfile7Slice, ciProfile8Slice,
	}

	for _, gi := range giProfiles {
		giSlices, ok := gpuInstanceSlices(gi)
		require.True(t, ok, "gi profile %d", gi)
		for _, ci := range ciProfiles {
			ciSlices, ok := computeInstanceSlices(ci)
			require.True(t, ok, "ci profile %d", ci)

			name := migDeviceName(giSlices, ciSlices, migMemoryGiB(4864, uint64(40)<<30), gpuInstanceAttrs(gi), gpuInstanceNegativeAttrs(gi))
			assert.Regexp(t, migNameRE, name)
		}
	}
}

func TestUnknownProfileIDsRejected(t *testing.T) {
	_, ok := gpuInstanceSlices(999)
	assert.False(t, ok)
	_, ok = computeInstanceSlices(999)
	assert.False(t, ok)
}
