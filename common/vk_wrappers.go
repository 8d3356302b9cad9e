package common

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

// Utility functions wrapping the raw go bindings to provide a more go-lang style interface. This should not
// hide or alter behavior and only allow for more tidy core code by tweaking signatures.

func VkCreateInstance(pCreateInfo *vk.InstanceCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.Instance, error) {
	var in vk.Instance
	err := vk.Error(vk.CreateInstance(pCreateInfo, pAllocator, &in))
	if err != nil {
		return nil, err
	}
	err = vk.InitInstance(in)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func SdlCreateVkSurface(win *sdl.Window, instance vk.Instance) (vk.Surface, error) {
	surfPtr, err := win.VulkanCreateSurface(instance)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(uintptr(surfPtr)), nil
}

func VkCreateDevice(physicalDevice vk.PhysicalDevice, pCreateInfo *vk.DeviceCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.Device, error) {
	var d vk.Device
	err := vk.Error(vk.CreateDevice(physicalDevice, pCreateInfo, pAllocator, &d))
	if err != nil {
		return nil, err
	}
	return d, nil
}

func VkGetDeviceQueue(device vk.Device, queueFamilyIndex *uint32, queueIndex uint32) (vk.Queue, error) {
	var q vk.Queue
	if queueFamilyIndex == nil {
		return nil, errors.New("QueueFamily index was nil")
	}
	vk.GetDeviceQueue(device, *queueFamilyIndex, queueIndex, &q)
	return q, nil
}

func VkCreateSwapChain(device vk.Device, pCreateInfo *vk.SwapchainCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.Swapchain, error) {
	var sc vk.Swapchain
	err := vk.Error(vk.CreateSwapchain(device, pCreateInfo, pAllocator, &sc))
	if err != nil {
		return vk.NullSwapchain, err
	}
	return sc, nil
}

func VkCreateImageView(device vk.Device, pCreateInfo *vk.ImageViewCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.ImageView, error) {
	var iv vk.ImageView
	err := vk.Error(vk.CreateImageView(device, pCreateInfo, pAllocator, &iv))
	if err != nil {
		return vk.NullImageView, err
	}
	return iv, nil
}

func VkCreateRenderPass(device vk.Device, pCreateInfo *vk.RenderPassCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.RenderPass, error) {
	var pr vk.RenderPass
	err := vk.Error(vk.CreateRenderPass(device, pCreateInfo, pAllocator, &pr))
	if err != nil {
		return vk.NullRenderPass, err
	}
	return pr, nil
}

func VkCreateFrameBuffer(device vk.Device, pCreateInfo *vk.FramebufferCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.Framebuffer, error) {
	var fb vk.Framebuffer
	err := vk.Error(vk.CreateFramebuffer(device, pCreateInfo, pAllocator, &fb))
	if err != nil {
		return vk.NullFramebuffer, err
	}
	return fb, nil
}

func VkCreatePipelineLayout(device vk.Device, pCreateInfo *vk.PipelineLayoutCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.PipelineLayout, error) {
	var pl vk.PipelineLayout
	err := vk.Error(vk.CreatePipelineLayout(device, pCreateInfo, pAllocator, &pl))
	if err != nil {
		return vk.NullPipelineLayout, err
	}
	return pl, nil
}

func VkCreateGraphicsPipelines(device vk.Device, pipelineCache vk.PipelineCache, createInfoCount uint32, pCreateInfos []vk.GraphicsPipelineCreateInfo, pAllocator *vk.AllocationCallbacks) ([]vk.Pipeline, error) {
	var gp = make([]vk.Pipeline, createInfoCount)
	err := vk.Error(vk.CreateGraphicsPipelines(device, pipelineCache, createInfoCount, pCreateInfos, pAllocator, gp))
	if err != nil {
		return nil, err
	}
	return gp, nil
}

func VKCreateShaderModule(device vk.Device, pCreateInfo *vk.ShaderModuleCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.ShaderModule, error) {
	var sm vk.ShaderModule
	err := vk.Error(vk.CreateShaderModule(device, pCreateInfo, pAllocator, &sm))
	if err != nil {
		return vk.NullShaderModule, err
	}
	return sm, nil
}

func VKCreateDescriptorSetLayout(device vk.Device, pCreateInfo *vk.DescriptorSetLayoutCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.DescriptorSetLayout, error) {
	var dsl vk.DescriptorSetLayout
	err := vk.Error(vk.CreateDescriptorSetLayout(device, pCreateInfo, pAllocator, &dsl))
	if err != nil {
		return vk.NullDescriptorSetLayout, err
	}
	return dsl, nil
}

func VKSCreateCommandPool(device vk.Device, flags vk.CommandPoolCreateFlags, queueFamilyIdx uint32) (vk.CommandPool, error) {
	createInfo := &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		PNext:            nil,
		Flags:            flags,
		QueueFamilyIndex: queueFamilyIdx,
	}
	var cp vk.CommandPool
	err := vk.Error(vk.CreateCommandPool(device, createInfo, nil, &cp))
	if err != nil {
		return cp, err
	}
	return cp, nil
}

func VKAllocateCommandBuffersPrimary(device vk.Device, pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		PNext:              nil,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	buffers := make([]vk.CommandBuffer, count)
	err := vk.Error(vk.AllocateCommandBuffers(device, &allocInfo, buffers))
	if err != nil {
		return nil, err
	}
	return buffers, nil
}

func VkMapMemory(device vk.Device, memory vk.DeviceMemory, offset vk.DeviceSize, size vk.DeviceSize, flags vk.MemoryMapFlags) (unsafe.Pointer, error) {
	var pData unsafe.Pointer
	err := vk.Error(vk.MapMemory(device, memory, offset, size, flags, &pData))
	if err != nil {
		return nil, err
	}
	return pData, nil
}

func VkCreateBuffer(device vk.Device, pCreateInfo *vk.BufferCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.Buffer, error) {
	var buf vk.Buffer
	err := vk.Error(vk.CreateBuffer(device, pCreateInfo, pAllocator, &buf))
	if err != nil {
		return vk.NullBuffer, err
	}
	return buf, nil
}

func VkAllocateMemory(device vk.Device, pAllocateInfo *vk.MemoryAllocateInfo, pAllocator *vk.AllocationCallbacks) (vk.DeviceMemory, error) {
	var dm vk.DeviceMemory
	err := vk.Error(vk.AllocateMemory(device, pAllocateInfo, pAllocator, &dm))
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	return dm, nil
}

func VkBindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, memoryOffset vk.DeviceSize) error {
	return vk.Error(vk.BindBufferMemory(device, buffer, memory, memoryOffset))
}

func VkCreateImage(device vk.Device, pCreateInfo *vk.ImageCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.Image, error) {
	var img vk.Image
	err := vk.Error(vk.CreateImage(device, pCreateInfo, pAllocator, &img))
	if err != nil {
		return vk.NullImage, err
	}
	return img, nil
}

func VkCreateSampler(device vk.Device, pCreateInfo *vk.SamplerCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.Sampler, error) {
	var sampler vk.Sampler
	err := vk.Error(vk.CreateSampler(device, pCreateInfo, pAllocator, &sampler))
	if err != nil {
		return vk.NullSampler, err
	}
	return sampler, nil
}

func VkCreateDescriptorPool(device vk.Device, pCreateInfo *vk.DescriptorPoolCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.DescriptorPool, error) {
	var dp vk.DescriptorPool
	err := vk.Error(vk.CreateDescriptorPool(device, pCreateInfo, pAllocator, &dp))
	if err != nil {
		return vk.NullDescriptorPool, err
	}
	return dp, nil
}

func VkAllocateDescriptorSets(device vk.Device, pool vk.DescriptorPool, layouts []vk.DescriptorSetLayout) ([]vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		PNext:              nil,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(len(layouts)),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, len(layouts))
	err := vk.Error(vk.AllocateDescriptorSets(device, &allocInfo, &(sets[0])))
	if err != nil {
		return nil, err
	}
	return sets, nil
}

func VkCreateFence(device vk.Device, pCreateInfo *vk.FenceCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.Fence, error) {
	var fence vk.Fence
	err := vk.Error(vk.CreateFence(device, pCreateInfo, pAllocator, &fence))
	if err != nil {
		return vk.NullFence, err
	}
	return fence, nil
}

// VKBeginSingleTimeCommands allocates a one-shot primary command buffer from pool and puts it
// into recording state. Pair with VKEndSingleTimeCommands.
func VKBeginSingleTimeCommands(device vk.Device, pool vk.CommandPool) (vk.CommandBuffer, error) {
	buffers, err := VKAllocateCommandBuffersPrimary(device, pool, 1)
	if err != nil {
		return nil, err
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType:            vk.StructureTypeCommandBufferBeginInfo,
		PNext:            nil,
		Flags:            vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
		PInheritanceInfo: nil,
	}
	if err := vk.Error(vk.BeginCommandBuffer(buffers[0], &beginInfo)); err != nil {
		vk.FreeCommandBuffers(device, pool, 1, buffers)
		return nil, err
	}
	return buffers[0], nil
}

// VKEndSingleTimeCommands submits the one-shot buffer, waits for the queue to drain and frees
// the buffer again.
func VKEndSingleTimeCommands(device vk.Device, pool vk.CommandPool, queue vk.Queue, cmdBuf vk.CommandBuffer) error {
	if err := vk.Error(vk.EndCommandBuffer(cmdBuf)); err != nil {
		return err
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		PNext:              nil,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmdBuf},
	}
	if err := vk.Error(vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence)); err != nil {
		return err
	}
	if err := vk.Error(vk.QueueWaitIdle(queue)); err != nil {
		return err
	}
	vk.FreeCommandBuffers(device, pool, 1, []vk.CommandBuffer{cmdBuf})
	return nil
}

func VkCreateSemaphore(device vk.Device, pCreateInfo *vk.SemaphoreCreateInfo, pAllocator *vk.AllocationCallbacks) (vk.Semaphore, error) {
	var sem vk.Semaphore
	err := vk.Error(vk.CreateSemaphore(device, pCreateInfo, pAllocator, &sem))
	if err != nil {
		return vk.NullSemaphore, err
	}
	return sem, nil
}
