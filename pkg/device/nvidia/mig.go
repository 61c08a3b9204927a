package nvidia

import (
	"math"
	"strconv"
)

// GPU Instance Profile IDs, as defined by nvml.h (NVML_GPU_INSTANCE_PROFILE_*,
// prefix dropped to match the values go-nvml exposes as nvml.GPU_INSTANCE_PROFILE_*).
const (
	giProfile1Slice      = 0
	giProfile2Slice      = 1
	giProfile3Slice      = 2
	giProfile4Slice      = 3
	giProfile7Slice      = 4
	giProfile8Slice      = 5
	giProfile6Slice      = 6
	giProfile1SliceRev1  = 7
	giProfile2SliceRev1  = 8
	giProfile1SliceRev2  = 9
	giProfile1SliceGfx   = 10
	giProfile2SliceGfx   = 11
	giProfile4SliceGfx   = 12
	giProfile1SliceNoMe  = 13
	giProfile2SliceNoMe  = 14
	giProfile1SliceAllMe = 15
	giProfile2SliceAllMe = 16
)

// Compute Instance Profile IDs (NVML_COMPUTE_INSTANCE_PROFILE_*).
const (
	ciProfile1Slice     = 0
	ciProfile2Slice     = 1
	ciProfile3Slice     = 2
	ciProfile4Slice     = 3
	ciProfile7Slice     = 4
	ciProfile8Slice     = 5
	ciProfile6Slice     = 6
	ciProfile1SliceRev1 = 7
)

// gpuInstanceSlices returns the slice count for a GPU Instance Profile ID.
// The REV*, GFX, NO_ME, and ALL_ME variants of a slice count all share the
// same base count (spec.md §4.A).
func gpuInstanceSlices(profileID int) (int, bool) {
	switch profileID {
	case giProfile1Slice, giProfile1SliceRev1, giProfile1SliceRev2, giProfile1SliceGfx, giProfile1SliceNoMe, giProfile1SliceAllMe:
		return 1, true
	case giProfile2Slice, giProfile2SliceRev1, giProfile2SliceGfx, giProfile2SliceNoMe, giProfile2SliceAllMe:
		return 2, true
	case giProfile3Slice:
		return 3, true
	case giProfile4Slice, giProfile4SliceGfx:
		return 4, true
	case giProfile6Slice:
		return 6, true
	case giProfile7Slice:
		return 7, true
	case giProfile8Slice:
		return 8, true
	}
	return 0, false
}

// computeInstanceSlices returns the slice count for a Compute Instance
// Profile ID.
func computeInstanceSlices(profileID int) (int, bool) {
	switch profileID {
	case ciProfile1Slice, ciProfile1SliceRev1:
		return 1, true
	case ciProfile2Slice:
		return 2, true
	case ciProfile3Slice:
		return 3, true
	case ciProfile4Slice:
		return 4, true
	case ciProfile6Slice:
		return 6, true
	case ciProfile7Slice:
		return 7, true
	case ciProfile8Slice:
		return 8, true
	}
	return 0, false
}

// gpuInstanceAttrs returns the "+attrs" suffix token for a GPU Instance
// Profile ID, or "" if it carries none.
func gpuInstanceAttrs(profileID int) string {
	switch profileID {
	case giProfile1SliceRev1, giProfile2SliceRev1:
		return "me"
	case giProfile1SliceAllMe, giProfile2SliceAllMe:
		return "me.all"
	case giProfile1SliceGfx, giProfile2SliceGfx, giProfile4SliceGfx:
		return "gfx"
	}
	return ""
}

// gpuInstanceNegativeAttrs returns the "-negattrs" suffix token.
func gpuInstanceNegativeAttrs(profileID int) string {
	switch profileID {
	case giProfile1SliceNoMe, giProfile2SliceNoMe:
		return "me"
	}
	return ""
}

// migMemoryGiB computes the memory size in GiB of a MIG slice given the
// slice's reported memory in MB and the parent GPU's total memory in
// bytes, per spec.md §4.A:
//
//	gib = round( ceil( (sliceMemoryMB * 2^20 / totalMemoryB) * 8 ) / 8
//	             * ceil(totalMemoryB / 2^30) )
func migMemoryGiB(sliceMemoryMB uint32, totalMemoryBytes uint64) int64 {
	sliceBytes := float64(sliceMemoryMB) * (1 << 20)
	fraction := sliceBytes / float64(totalMemoryBytes)
	eighths := math.Ceil(fraction * 8)
	totalGiB := math.Ceil(float64(totalMemoryBytes) / (1 << 30))
	return int64(math.Round(eighths / 8 * totalGiB))
}

// migDeviceName reconstructs the human-readable MIG slice name, e.g.
// "1g.5gb", "1c.2g.10gb", "2g.10gb+gfx".
func migDeviceName(giSlices, ciSlices int, memGiB int64, attrs, negAttrs string) string {
	var name string
	if giSlices == ciSlices {
		name = formatSliceMem(giSlices, memGiB)
	} else {
		name = formatSliceMemCI(ciSlices, giSlices, memGiB)
	}
	if attrs != "" {
		name += "+" + attrs
	}
	if negAttrs != "" {
		name += "-" + negAttrs
	}
	return name
}

func formatSliceMem(giSlices int, memGiB int64) string {
	return strconv.Itoa(giSlices) + "g." + strconv.FormatInt(memGiB, 10) + "gb"
}

func formatSliceMemCI(ciSlices, giSlices int, memGiB int64) string {
	return strconv.Itoa(ciSlices) + "c." + strconv.Itoa(giSlices) + "g." + strconv.FormatInt(memGiB, 10) + "gb"
}
