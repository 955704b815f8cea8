package vulkan

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

var (
	graphicsPresentTransfer = queueFamily{Flags: core1_0.QueueGraphics | core1_0.QueueTransfer, Present: true}
	transferOnly            = queueFamily{Flags: core1_0.QueueTransfer}
)

func TestPickPhysicalDevice_PrefersDiscrete(t *testing.T) {
	integrated := physicalDevice{
		Name:     "integrated",
		Type:     core1_0.PhysicalDeviceTypeIntegratedGPU,
		Families: []queueFamily{graphicsPresentTransfer, transferOnly},
	}
	discrete := physicalDevice{
		Name:     "discrete",
		Type:     core1_0.PhysicalDeviceTypeDiscreteGPU,
		Families: []queueFamily{graphicsPresentTransfer},
	}

	choice, ok := pickPhysicalDevice([]physicalDevice{integrated, discrete})
	require.True(t, ok)
	require.Equal(t, "discrete", choice.Device.Name)

	choice, ok = pickPhysicalDevice([]physicalDevice{discrete, integrated})
	require.True(t, ok)
	require.Equal(t, "discrete", choice.Device.Name)
}

func TestPickPhysicalDevice_SeparatesTransferFamily(t *testing.T) {
	device := physicalDevice{
		Name:     "gpu",
		Type:     core1_0.PhysicalDeviceTypeDiscreteGPU,
		Families: []queueFamily{graphicsPresentTransfer, transferOnly},
	}

	choice, ok := pickPhysicalDevice([]physicalDevice{device})
	require.True(t, ok)
	require.Equal(t, 0, choice.GraphicsFamily)
	require.Equal(t, 1, choice.TransferFamily)
	require.Equal(t, 1+discreteScore+2*separationScore, choice.Score)
}

func TestPickPhysicalDevice_SingleFamilyQualifies(t *testing.T) {
	device := physicalDevice{
		Name:     "integrated",
		Type:     core1_0.PhysicalDeviceTypeIntegratedGPU,
		Families: []queueFamily{graphicsPresentTransfer},
	}

	choice, ok := pickPhysicalDevice([]physicalDevice{device})
	require.True(t, ok)
	require.Equal(t, 0, choice.GraphicsFamily)
	require.Equal(t, 0, choice.TransferFamily)
	require.Equal(t, 1, choice.Score)
}

func TestPickPhysicalDevice_TiesKeepEnumerationOrder(t *testing.T) {
	first := physicalDevice{Name: "first", Families: []queueFamily{graphicsPresentTransfer}}
	second := physicalDevice{Name: "second", Families: []queueFamily{graphicsPresentTransfer}}

	choice, ok := pickPhysicalDevice([]physicalDevice{first, second})
	require.True(t, ok)
	require.Equal(t, "first", choice.Device.Name)
}

func TestPickPhysicalDevice_RejectsDevicesWithoutRoles(t *testing.T) {
	noPresent := physicalDevice{
		Name:     "headless",
		Type:     core1_0.PhysicalDeviceTypeDiscreteGPU,
		Families: []queueFamily{{Flags: core1_0.QueueGraphics | core1_0.QueueTransfer}},
	}
	noGraphics := physicalDevice{
		Name:     "compute",
		Type:     core1_0.PhysicalDeviceTypeDiscreteGPU,
		Families: []queueFamily{transferOnly},
	}

	_, ok := pickPhysicalDevice([]physicalDevice{noPresent, noGraphics})
	require.False(t, ok)

	_, ok = pickPhysicalDevice(nil)
	require.False(t, ok)
}

func TestFamilyRoles_LastQualifyingFamilyWins(t *testing.T) {
	graphics, transfer, ok := familyRoles([]queueFamily{graphicsPresentTransfer, graphicsPresentTransfer, transferOnly})
	require.True(t, ok)
	require.Equal(t, 1, graphics)
	require.Equal(t, 2, transfer)
}

func TestMissingExtensions(t *testing.T) {
	available := map[string]bool{"a": true, "b": true}
	require.Empty(t, missingExtensions(available, []string{"a", "b"}))
	require.Equal(t, []string{"c"}, missingExtensions(available, []string{"a", "c"}))
}

func TestUniqueFamilies(t *testing.T) {
	require.Equal(t, []int{0}, uniqueFamilies(0, 0))
	require.Equal(t, []int{0, 2}, uniqueFamilies(0, 2, 0))
}
