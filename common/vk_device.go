package common

import (
	"log"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

var DEVICE_EXTENSIONS = []string{
	"VK_KHR_swapchain",
}

// Device represents the interfacing objects between the SDL window, the Hardware running Vulkan
// and the rest of the rendering engine. Its main purpose is to encapsulate the corresponding objects
// to make the initialization and teardown of a given application neater.
type Device struct {
	PhysicalDevice vk.PhysicalDevice
	PdProps        vk.PhysicalDeviceProperties
	PdMemoryProps  vk.PhysicalDeviceMemoryProperties
	QFamilies      QueueFamilyIndices

	D         vk.Device
	GraphicsQ vk.Queue
	PresentQ  vk.Queue
}

// NewDevice selects a suitable physical device for the given window surface and derives the logical
// device plus its graphics and present queues from it. It does not take ownership of the window.
func NewDevice(w *Window, validationLayers []string) (*Device, error) {
	dc := &Device{}
	if err := dc.selectPhysicalDevice(w.Inst, w.Surf); err != nil {
		return nil, err
	}
	if err := dc.createLogicalDevice(validationLayers); err != nil {
		return nil, err
	}
	return dc, nil
}

// Destroy all objects created by itself. It does not destroy the window object provided for instantiation.
func (dc *Device) Destroy() {
	vk.DestroyDevice(dc.D, nil)
}

func (dc *Device) selectPhysicalDevice(in *vk.Instance, su *vk.Surface) error {
	availableDevices := ReadPhysicalDevices(*in)
	var pd vk.PhysicalDevice
	for i := range availableDevices {
		if isDeviceSuitable(availableDevices[i], su) {
			pd = availableDevices[i]
			break
		}
	}
	if pd == nil {
		return errors.New("no suitable physical device (GPU) found")
	}
	log.Printf("Found suitable device")
	dc.PhysicalDevice = pd

	// Also set related member variables for dc.PhysicalDevice as they are needed later
	qf, err := findQueueFamilies(dc.PhysicalDevice, *su)
	if err != nil {
		return errors.Wrap(err, "failed to read queue families from selected device")
	}
	dc.QFamilies = *qf
	dc.PdProps = ReadPhysicalDeviceProperties(dc.PhysicalDevice)
	// this is the easiest spot to deref this at the moment
	dc.PdProps.Limits.Deref()
	dc.PdMemoryProps = ReadDeviceMemoryProperties(dc.PhysicalDevice)
	return nil
}

func isDeviceSuitable(pd vk.PhysicalDevice, su *vk.Surface) bool {
	pdProps := ReadPhysicalDeviceProperties(pd)
	pdFeatures := ReadPhysicalDeviceFeatures(pd)

	indices, err := findQueueFamilies(pd, *su)
	if err != nil {
		log.Printf("Failed to get required queue families: %s", err)
		return false
	}

	queuesSupported := indices.isAllQueuesFound()
	featuresSupported := pdFeatures.SamplerAnisotropy == vk.True
	extensionsSupported := checkDeviceExtensionSupport(pd, DEVICE_EXTENSIONS)

	isSwapChainAdequate := false
	if extensionsSupported {
		isSwapChainAdequate = checkSwapChainAdequacy(pd, *su)
	}

	// Prefer whatever supports the full feature set; discrete vs integrated does not matter
	// for a single textured mesh.
	suitable := featuresSupported && queuesSupported && extensionsSupported && isSwapChainAdequate
	log.Printf("Physical device %q suitable: %v", vk.ToString(pdProps.DeviceName[:]), suitable)
	return suitable
}

func (dc *Device) createLogicalDevice(validationLayers []string) error {
	queueInfos := dc.QFamilies.toQueueCreateInfos()
	deviceFeatures := vk.PhysicalDeviceFeatures{ // We explicitly enable anisotropic sampling, more interesting stuff could be added here
		SamplerAnisotropy: vk.True,
	}
	deviceCreatInfo := &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledLayerCount:       0,
		PpEnabledLayerNames:     nil,
		EnabledExtensionCount:   uint32(len(DEVICE_EXTENSIONS)),
		PpEnabledExtensionNames: TerminatedStrs(DEVICE_EXTENSIONS),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
	}
	if len(validationLayers) > 0 {
		deviceCreatInfo.EnabledLayerCount = uint32(len(validationLayers))
		deviceCreatInfo.PpEnabledLayerNames = TerminatedStrs(validationLayers)
	}

	var err error
	dc.D, err = VkCreateDevice(dc.PhysicalDevice, deviceCreatInfo, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create logical device")
	}
	dc.GraphicsQ, err = VkGetDeviceQueue(dc.D, dc.QFamilies.GraphicsFamily, 0)
	if err != nil {
		return errors.Wrap(err, "failed to get 'graphics' device queue")
	}
	dc.PresentQ, err = VkGetDeviceQueue(dc.D, dc.QFamilies.PresentFamily, 0)
	if err != nil {
		return errors.Wrap(err, "failed to get 'present' device queue")
	}
	log.Println("Logical device created successfully!")
	return nil
}

func checkDeviceExtensionSupport(pd vk.PhysicalDevice, requiredDeviceExt []string) bool {
	supportedExt := ReadDeviceExtensionProperties(pd)
	log.Printf("Required device extensions: %v", requiredDeviceExt)
	log.Printf("Available device extensions (%d) [...]", len(supportedExt))
	supportedExtNames := make([]string, len(supportedExt))
	for i, ext := range supportedExt {
		supportedExtNames[i] = vk.ToString(ext.ExtensionName[:])
	}
	return AllOfAinB(requiredDeviceExt, supportedExtNames)
}
