package common

import (
	"log"

	vk "github.com/goki/vulkan"
)

// Read helpers wrapping the two-call enumeration pattern of the raw vulkan bindings and
// dereferencing all necessary pointer values. Enumeration only fails on broken drivers,
// which we treat as unrecoverable.

// ReadInstanceExtensionPropertyNames is a convenience method obfuscating the spec defined []vk.ExtensionProperties
// type in favor of their respective names in order to simplify support checks to a point of string comparisons.
func ReadInstanceExtensionPropertyNames() []string {
	supportedExts := readInstanceExtensionProperties()
	supportedExtNames := make([]string, len(supportedExts))
	for i, ext := range supportedExts {
		supportedExtNames[i] = vk.ToString(ext.ExtensionName[:])
	}
	return supportedExtNames
}

func readInstanceExtensionProperties() []vk.ExtensionProperties {
	extensionCount := uint32(0)
	err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &extensionCount, nil))
	if err != nil {
		log.Panicf("Failed read number of InstanceExtensionProperties: %s", err)
	}
	extensionProperties := make([]vk.ExtensionProperties, extensionCount)
	err = vk.Error(vk.EnumerateInstanceExtensionProperties("", &extensionCount, extensionProperties))
	if err != nil {
		log.Panicf("Failed read %d InstanceExtensionProperties: %s", extensionCount, err)
	}
	for i := range extensionProperties {
		extensionProperties[i].Deref()
	}
	return extensionProperties
}

// ReadInstanceLayerPropertyNames is a convenience method obfuscating the spec defined []vk.LayerProperties
// type in favor of their respective names in order to simplify support checks to a point of string comparisons.
func ReadInstanceLayerPropertyNames() []string {
	supportedLayers := readInstanceLayerProperties()
	supLayerNames := make([]string, len(supportedLayers))
	for i, l := range supportedLayers {
		supLayerNames[i] = vk.ToString(l.LayerName[:])
	}
	return supLayerNames
}

func readInstanceLayerProperties() []vk.LayerProperties {
	layerCount := uint32(0)
	err := vk.Error(vk.EnumerateInstanceLayerProperties(&layerCount, nil))
	if err != nil {
		log.Panicf("Failed read number of InstanceLayerProperties: %s", err)
	}
	layers := make([]vk.LayerProperties, layerCount)
	err = vk.Error(vk.EnumerateInstanceLayerProperties(&layerCount, layers))
	if err != nil {
		log.Panicf("Failed read %d InstanceLayerProperties: %s", layerCount, err)
	}
	for i := range layers {
		layers[i].Deref()
	}
	return layers
}

func ReadPhysicalDevices(instance vk.Instance) []vk.PhysicalDevice {
	deviceCount := uint32(0)
	err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil))
	if err != nil {
		log.Panicf("Failed read number of PhysicalDevices: %s", err)
	}
	if deviceCount == 0 {
		return nil
	}
	devices := make([]vk.PhysicalDevice, deviceCount)
	err = vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, devices))
	if err != nil {
		log.Panicf("Failed read %d PhysicalDevices: %s", deviceCount, err)
	}
	return devices
}

func ReadPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var pdProps vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &pdProps)
	pdProps.Deref()
	return pdProps
}

func ReadPhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	var pdFeatures vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &pdFeatures)
	pdFeatures.Deref()
	return pdFeatures
}

func ReadQueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	qFamilyCount := uint32(0)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &qFamilyCount, nil)
	qFamilies := make([]vk.QueueFamilyProperties, qFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &qFamilyCount, qFamilies)
	for i := range qFamilies {
		qFamilies[i].Deref()
	}
	return qFamilies
}

func ReadDeviceExtensionProperties(pd vk.PhysicalDevice) []vk.ExtensionProperties {
	extCount := uint32(0)
	err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &extCount, nil))
	if err != nil {
		log.Panicf("Failed read number of DeviceExtensionProperties: %s", err)
	}
	extProps := make([]vk.ExtensionProperties, extCount)
	err = vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &extCount, extProps))
	if err != nil {
		log.Panicf("Failed read %d DeviceExtensionProperties: %s", extCount, err)
	}
	for i := range extProps {
		extProps[i].Deref()
	}
	return extProps
}

func ReadSwapChainSupportDetails(pd vk.PhysicalDevice, surface vk.Surface) SwapChainDetails {
	details := SwapChainDetails{}

	vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &details.capabilities)
	details.capabilities.Deref()

	formatCount := uint32(0)
	vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil)
	if formatCount > 0 {
		details.formats = make([]vk.SurfaceFormat, formatCount)
		vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, details.formats)
		for i := range details.formats {
			details.formats[i].Deref()
		}
	}

	presentModeCount := uint32(0)
	vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &presentModeCount, nil)
	if presentModeCount > 0 {
		details.presentModes = make([]vk.PresentMode, presentModeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &presentModeCount, details.presentModes)
	}
	return details
}

func ReadSwapChainImages(device vk.Device, swapChain vk.Swapchain) []vk.Image {
	imageCount := uint32(0)
	vk.GetSwapchainImages(device, swapChain, &imageCount, nil)
	images := make([]vk.Image, imageCount)
	vk.GetSwapchainImages(device, swapChain, &imageCount, images)
	return images
}

func ReadDeviceMemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memProps)
	memProps.Deref()
	for i := range memProps.MemoryTypes {
		memProps.MemoryTypes[i].Deref()
	}
	for i := range memProps.MemoryHeaps {
		memProps.MemoryHeaps[i].Deref()
	}
	return memProps
}

func ReadBufferMemoryRequirements(device vk.Device, b vk.Buffer) vk.MemoryRequirements {
	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, b, &memRequirements)
	memRequirements.Deref()
	return memRequirements
}

func ReadImageMemoryRequirements(device vk.Device, img vk.Image) vk.MemoryRequirements {
	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, img, &memRequirements)
	memRequirements.Deref()
	return memRequirements
}
