package vulkan

import (
	"github.com/vkngwrapper/core/v3/core1_0"
)

const (
	discreteScore   = 100000
	separationScore = 1000
)

// familyRoles picks the graphics and transfer queue families of a device.
// A graphics family must also present to the surface. The last qualifying
// family of each role wins.
func familyRoles(families []queueFamily) (graphics, transfer int, ok bool) {
	graphics, transfer = -1, -1

	for familyIdx, family := range families {
		if family.Flags&core1_0.QueueGraphics != 0 && family.Present {
			graphics = familyIdx
		}
		if family.Flags&core1_0.QueueTransfer != 0 {
			transfer = familyIdx
		}
	}

	return graphics, transfer, graphics >= 0 && transfer >= 0
}

// rateDevice scores a device that exposes both family roles. Devices lacking
// either role score zero; any other device scores at least one.
func rateDevice(device physicalDevice) (score, graphics, transfer int) {
	graphics, transfer, ok := familyRoles(device.Families)
	if !ok {
		return 0, -1, -1
	}

	score = 1
	if device.Type == core1_0.PhysicalDeviceTypeDiscreteGPU {
		score += discreteScore
	}

	if graphics != transfer {
		// once for graphics being apart from transfer, once for the reverse
		score += separationScore
		score += separationScore
	}

	return score, graphics, transfer
}

type deviceChoice struct {
	Device         physicalDevice
	GraphicsFamily int
	TransferFamily int
	Score          int
}

// pickPhysicalDevice returns the highest scoring device. Ties go to the
// earliest device in enumeration order.
func pickPhysicalDevice(devices []physicalDevice) (deviceChoice, bool) {
	var best deviceChoice

	for _, device := range devices {
		score, graphics, transfer := rateDevice(device)
		if score > best.Score {
			best = deviceChoice{
				Device:         device,
				GraphicsFamily: graphics,
				TransferFamily: transfer,
				Score:          score,
			}
		}
	}

	return best, best.Score > 0
}

func missingExtensions(available map[string]bool, required []string) []string {
	var missing []string
	for _, ext := range required {
		if !available[ext] {
			missing = append(missing, ext)
		}
	}
	return missing
}

func uniqueFamilies(families ...int) []int {
	var unique []int
	for _, family := range families {
		seen := false
		for _, u := range unique {
			if u == family {
				seen = true
				break
			}
		}
		if !seen {
			unique = append(unique, family)
		}
	}
	return unique
}
